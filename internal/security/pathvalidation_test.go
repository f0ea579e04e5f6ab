package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	require.NoError(t, os.MkdirAll(safeDir, 0o755))
	require.NoError(t, os.MkdirAll(unsafeDir, 0o755))

	// A symlink inside the safe directory pointing outside it.
	symlinkPath := filepath.Join(safeDir, "evil-symlink")
	require.NoError(t, os.Symlink(unsafeDir, symlinkPath))

	cases := []struct {
		name    string
		path    string
		safeDir string
		wantErr bool
	}{
		{"direct child", filepath.Join(safeDir, "plot.png"), safeDir, false},
		{"nested child", filepath.Join(safeDir, "sub", "plot.png"), safeDir, false},
		{"dotdot traversal", filepath.Join(safeDir, "..", "plot.png"), safeDir, true},
		{"relative escape", "../../../etc/passwd", safeDir, true},
		{"symlink escape", filepath.Join(symlinkPath, "plot.png"), safeDir, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tc.path, tc.safeDir)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateExportPath(t *testing.T) {
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "session-plots", "trace.png")))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.NoError(t, ValidateExportPath(filepath.Join(cwd, "trace.png")))

	assert.Error(t, ValidateExportPath("/etc/trace.png"))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "desk-7", SanitizeFilename("desk-7"))
	assert.Equal(t, "a_b_c", SanitizeFilename("a/b\\c"))
	assert.Equal(t, "sess_42", SanitizeFilename("sess 42"))
	assert.Equal(t, "unknown", SanitizeFilename(""))
	assert.Equal(t, "unknown", SanitizeFilename("///"))

	long := SanitizeFilename(repeat('x', 200))
	assert.LessOrEqual(t, len(long), 128)
}

func repeat(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

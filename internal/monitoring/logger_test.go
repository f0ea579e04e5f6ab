package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("frame %d dropped", 7)
	assert.Equal(t, "frame %d dropped", got)

	// nil installs a no-op, not a nil func.
	got = ""
	SetLogger(nil)
	Logf("muted")
	assert.Empty(t, got)
}

func TestLogfDefault(t *testing.T) {
	assert.NotNil(t, Logf)
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, LevelWarning, ParseLevel("WARN"))
	assert.Equal(t, LevelWarning, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))

	// Unknown values default to Info
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

// -----------------------------------------------------------------------------

func TestNamed_InheritsLevel(t *testing.T) {
	parent := NewLogger(LevelWarning, "parent")
	child := parent.Named("child")

	assert.Equal(t, parent.level, child.level)
	assert.Equal(t, "child", child.name)
	assert.Same(t, parent.logger, child.logger)
}

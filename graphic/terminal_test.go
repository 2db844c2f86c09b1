package graphic

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTerminalUnderTmux(t *testing.T) {
	t.Setenv("TERM", "tmux-256color")
	t.Setenv("TERMINFO", "/usr/share/terminfo")

	restore, err := normalizeTerminal()
	require.NoError(t, err)

	_, had := os.LookupEnv("TERMINFO")
	assert.False(t, had)

	restore()
	assert.Equal(t, "/usr/share/terminfo", os.Getenv("TERMINFO"))
}

func TestNormalizeTerminalElsewhere(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("TERMINFO", "/usr/share/terminfo")

	restore, err := normalizeTerminal()
	require.NoError(t, err)
	assert.Equal(t, "/usr/share/terminfo", os.Getenv("TERMINFO"))

	restore()
	assert.Equal(t, "/usr/share/terminfo", os.Getenv("TERMINFO"))
}

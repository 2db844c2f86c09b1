package graphic

import (
	"os"
	"strings"
)

// normalizeTerminal prepares the environment for termbox before the scope
// takes over the screen. Under tmux a TERMINFO pointing at the outer terminal
// makes termbox.Init fail, so it is unset for the life of the display.
//
// The returned func puts TERMINFO back; Display.Close calls it.
func normalizeTerminal() (func(), error) {
	terminfo, had := os.LookupEnv("TERMINFO")

	if !had || !strings.HasPrefix(os.Getenv("TERM"), "tmux") {
		return func() {}, nil
	}

	if err := os.Unsetenv("TERMINFO"); err != nil {
		return nil, err
	}

	return func() { os.Setenv("TERMINFO", terminfo) }, nil
}

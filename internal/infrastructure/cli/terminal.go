package cli

import (
	"io"
	"os"

	"golang.org/x/term"
)

const defaultWidth = 100

// isTerminal reports whether v is an *os.File attached to a terminal.
func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or defaultWidth when w is not a
// terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// openTTY returns a reader on the controlling terminal. When stdin is a
// terminal it is used directly; when stdin is piped, /dev/tty is opened so
// choices can still be read. The returned closer is never nil.
func openTTY(stdin io.Reader) (io.Reader, func(), bool) {
	if isTerminal(stdin) {
		return stdin, func() {}, true
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, func() {}, false
	}
	if !term.IsTerminal(int(tty.Fd())) {
		tty.Close()
		return nil, func() {}, false
	}
	return tty, func() { tty.Close() }, true
}

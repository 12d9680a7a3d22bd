// Package progress renders the per-token progress lines of a migration run.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = [...]byte{'-', '\\', '|', '/'}

// Reporter writes progress for one run.
//
// Output is advisory: write errors are remembered (see Err) but never stop
// the caller. The spinner redraws one character with backspaces, so it is
// only drawn when the output is a terminal; otherwise each token ends up as
// a plain "<name> <n> files." line.
type Reporter struct {
	w       io.Writer
	spinner bool

	count int
	err   error
}

// NewReporter creates a reporter writing to w. The spinner is enabled when w
// is a terminal.
func NewReporter(w io.Writer) *Reporter {
	return NewReporterWithSpinner(w, IsTerminal(w))
}

// NewReporterWithSpinner creates a reporter with the spinner forced on or off.
func NewReporterWithSpinner(w io.Writer, spinner bool) *Reporter {
	return &Reporter{w: w, spinner: spinner}
}

// IsTerminal reports whether w is a terminal (including Cygwin/MSYS ptys).
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Begin prints the run header.
func (r *Reporter) Begin() {
	r.print("\n=== processing space tokens ===\n\n")
}

// Skip reports a token that is not processed.
func (r *Reporter) Skip(name string) {
	r.print(name + " skip\n")
}

// StartToken opens the progress line of a token.
func (r *Reporter) StartToken(name string) {
	r.count = 0
	if r.spinner {
		r.print(name + "  ")
		return
	}
	r.print(name + " ")
}

// Tick records one processed file.
func (r *Reporter) Tick() {
	if r.spinner {
		r.print(string([]byte{'\b', spinnerFrames[r.count%len(spinnerFrames)]}))
	}
	r.count++
}

// FinishToken closes the progress line and returns the number of ticks.
func (r *Reporter) FinishToken() int {
	if r.spinner {
		r.print("\b")
	}
	r.print(fmt.Sprintf("%d files.\n", r.count))
	return r.count
}

// Done prints the run footer.
func (r *Reporter) Done() {
	r.print("\n===         Done!           ===\n\n")
}

// Err returns the first write error, if any.
func (r *Reporter) Err() error {
	return r.err
}

func (r *Reporter) print(s string) {
	if r.err != nil {
		return
	}
	_, r.err = io.WriteString(r.w, s)
}

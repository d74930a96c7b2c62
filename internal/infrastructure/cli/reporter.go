package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// Reporter prints mediated command outcomes on the diagnostic stream.
type Reporter struct {
	out io.Writer
}

// NewReporter writes to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) ReportExecution(result domain.ExecutionResult) {
	elapsed := result.Duration.Round(time.Millisecond)
	switch {
	case result.Interrupted:
		fmt.Fprintln(r.out, styleWarn.Render(fmt.Sprintf("interrupted after %s", elapsed)))
	case result.ExitCode == 0:
		fmt.Fprintln(r.out, styleOK.Render(fmt.Sprintf("exit 0 in %s", elapsed)))
	default:
		fmt.Fprintln(r.out, styleDanger.Render(fmt.Sprintf("exit %d in %s", result.ExitCode, elapsed)))
	}
}

func (r *Reporter) ReportAbort(candidate domain.CommandCandidate) {
	fmt.Fprintln(r.out, styleHint.Render("aborted: "+candidate.Text))
}

func (r *Reporter) ReportError(step string, err error) {
	fmt.Fprintln(r.out, styleDanger.Render(fmt.Sprintf("%s failed: %v", step, err)))
}

var _ ports.OutcomeReporter = (*Reporter)(nil)

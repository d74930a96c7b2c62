package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

var choiceKeys = map[string]domain.Choice{
	"e": domain.ChoiceExecute, "execute": domain.ChoiceExecute, "y": domain.ChoiceExecute,
	"d": domain.ChoiceDescribe, "describe": domain.ChoiceDescribe,
	"m": domain.ChoiceEdit, "modify": domain.ChoiceEdit, "edit": domain.ChoiceEdit,
	"a": domain.ChoiceAbort, "abort": domain.ChoiceAbort, "n": domain.ChoiceAbort,
}

// Prompter implements ports.ChoicePrompter with line input.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads choices from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Choose shows the risk assessment and asks until a known key is entered.
// An empty line selects def. End of input is returned as io.EOF.
func (p *Prompter) Choose(candidate domain.CommandCandidate, risk domain.RiskAssessment, def domain.Choice) (domain.Choice, error) {
	p.showRisk(risk)
	for {
		fmt.Fprintf(p.out, "%s %s ", styleHint.Render("[E]xecute, [D]escribe, [M]odify, [A]bort"), styleHint.Render("("+string(def)+")"))
		line, err := p.readLine()
		if line == "" && err != nil {
			return "", err
		}
		if line == "" {
			return def, nil
		}
		if choice, ok := choiceKeys[strings.ToLower(line)]; ok {
			return choice, nil
		}
		if err != nil {
			return "", err
		}
		fmt.Fprintf(p.out, "Unknown choice %q\n", line)
	}
}

// ReadReplacement asks for a new command. An empty answer keeps current.
func (p *Prompter) ReadReplacement(current string) (string, error) {
	fmt.Fprintf(p.out, "New command %s: ", styleHint.Render("["+current+"]"))
	line, err := p.readLine()
	if line == "" {
		if err != nil && err != io.EOF {
			return current, err
		}
		return current, nil
	}
	return line, nil
}

func (p *Prompter) showRisk(risk domain.RiskAssessment) {
	if risk.Level == "" || risk.Level == domain.RiskSafe {
		return
	}
	style := riskStyle(risk.Level)
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf("Risk: %s", strings.ToUpper(string(risk.Level)))))
	for _, reason := range risk.Reasons {
		fmt.Fprintf(p.out, "  - %s\n", reason)
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	return strings.TrimSpace(line), err
}

var _ ports.ChoicePrompter = (*Prompter)(nil)

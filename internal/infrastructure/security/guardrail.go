// Package security rates generated shell commands before the user runs them.
// Assessments are advisory: they are displayed and pick the default choice,
// but never block execution on their own.
package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/syntax"

	"github.com/doeshing/sgpt-go/assets"
	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// Guardrail implements the SecurityService port.
type Guardrail struct {
	patterns []compiledPattern
	variant  *syntax.LangVariant
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DangerPattern describes a regex-based guardrail rule.
type DangerPattern struct {
	Pattern string `yaml:"pattern"`
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DangerPatterns []DangerPattern `yaml:"danger_patterns"`
	} `yaml:"rules"`
}

// NewGuardrail loads rules from path, falling back to the embedded defaults
// when path is empty or missing. Commands for POSIX-like shells are also
// syntax checked.
func NewGuardrail(path, shellName string) (*Guardrail, error) {
	rules, err := loadRules(path)
	if err != nil {
		return nil, err
	}

	compiled := make([]compiledPattern, 0, len(rules.Rules.DangerPatterns))
	for _, pattern := range rules.Rules.DangerPatterns {
		re, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			return nil, &domain.ConfigError{Key: "guardrail pattern", Value: pattern.Pattern, Err: err}
		}
		compiled = append(compiled, compiledPattern{re: re, rule: pattern})
	}

	return &Guardrail{patterns: compiled, variant: shellVariant(shellName)}, nil
}

// Evaluate implements ports.SecurityService.
func (g *Guardrail) Evaluate(command string) (domain.RiskAssessment, error) {
	if g == nil {
		return domain.RiskAssessment{}, errors.New("guardrail nil")
	}
	assessment := domain.RiskAssessment{Level: domain.RiskSafe}
	for _, pattern := range g.patterns {
		if !pattern.re.MatchString(command) {
			continue
		}
		if level := parseRiskLevel(pattern.rule.Level); level.MoreSevere(assessment.Level) {
			assessment.Level = level
		}
		assessment.Reasons = append(assessment.Reasons, pattern.rule.Message)
		assessment.MatchedRules = append(assessment.MatchedRules, pattern.rule.Pattern)
	}

	if g.variant != nil {
		if err := CheckSyntax(command, *g.variant); err != nil {
			assessment.SyntaxError = err.Error()
			assessment.Reasons = append(assessment.Reasons, "Command does not parse: "+err.Error())
			if domain.RiskMedium.MoreSevere(assessment.Level) {
				assessment.Level = domain.RiskMedium
			}
		}
	}
	return assessment, nil
}

// CheckSyntax parses command in the given shell dialect.
func CheckSyntax(command string, variant syntax.LangVariant) error {
	parser := syntax.NewParser(syntax.Variant(variant))
	_, err := parser.Parse(strings.NewReader(command), "")
	return err
}

// shellVariant maps a shell name to a parser dialect, or nil when the shell
// is not POSIX-like (cmd.exe, PowerShell, fish).
func shellVariant(shellName string) *syntax.LangVariant {
	name := strings.TrimSuffix(strings.ToLower(filepath.Base(shellName)), ".exe")
	var variant syntax.LangVariant
	switch name {
	case "bash", "zsh", "ksh":
		variant = syntax.LangBash
	case "sh", "dash", "ash":
		variant = syntax.LangPOSIX
	case "mksh":
		variant = syntax.LangMirBSDKorn
	default:
		return nil
	}
	return &variant
}

func loadRules(path string) (RulesFile, error) {
	var rules RulesFile
	data := assets.DefaultGuardrailYAML
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = raw
		case errors.Is(err, fs.ErrNotExist):
		default:
			return RulesFile{}, fmt.Errorf("read guardrail rules: %w", err)
		}
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, &domain.ConfigError{Key: "guardrail rules", Value: path, Err: err}
	}
	if len(rules.Rules.DangerPatterns) == 0 {
		return loadRules("")
	}
	return rules, nil
}

func parseRiskLevel(value string) domain.RiskLevel {
	switch strings.ToLower(value) {
	case "low":
		return domain.RiskLow
	case "medium":
		return domain.RiskMedium
	case "high":
		return domain.RiskHigh
	case "critical":
		return domain.RiskCritical
	default:
		return domain.RiskSafe
	}
}

var _ ports.SecurityService = (*Guardrail)(nil)

package domain

import "strings"

// OutputKind is the output contract a role imposes on the model.
type OutputKind string

const (
	// OutputShell asks for exactly one shell command.
	OutputShell OutputKind = "shell"
	// OutputDescribe asks for a short description of a shell command.
	OutputDescribe OutputKind = "describe"
	// OutputCode asks for code only.
	OutputCode OutputKind = "code"
	// OutputText asks for free-form text.
	OutputText OutputKind = "text"
)

// Names of the built-in roles.
const (
	RoleDefault       = "ShellGPT"
	RoleShell         = "Shell Command Generator"
	RoleDescribeShell = "Shell Command Descriptor"
	RoleCode          = "Code Generator"
)

// Role is a named prompt template plus its output contract. Prompt is a
// text/template that may reference {{.OS}} and {{.Shell}}.
type Role struct {
	Name     string     `yaml:"name" toml:"name" json:"name"`
	Prompt   string     `yaml:"prompt" toml:"prompt" json:"prompt"`
	Output   OutputKind `yaml:"output" toml:"output" json:"output"`
	Markdown bool       `yaml:"markdown" toml:"markdown" json:"markdown"`
}

// ProducesCommand reports whether the role's output is a shell command
// candidate for the mediator.
func (r Role) ProducesCommand() bool {
	return r.Output == OutputShell
}

// Normalize fills the output contract and trims the template.
func (r Role) Normalize() Role {
	r.Name = strings.TrimSpace(r.Name)
	r.Prompt = strings.TrimSpace(r.Prompt)
	switch OutputKind(strings.ToLower(string(r.Output))) {
	case OutputShell, OutputDescribe, OutputCode:
		r.Output = OutputKind(strings.ToLower(string(r.Output)))
	default:
		r.Output = OutputText
	}
	return r
}

// Package pack runs an executable packer over a tree of compiled binaries.
package pack

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/shlex"
)

// DefaultCommand packs with UPX at its strongest setting, keeping a backup.
const DefaultCommand = `upx --best -k --le -o "{{.Output}}" "{{.Input}}"`

// Packer renders the packer command line for one binary. Commands are
// text/template templates over Input and Output, split with shell quoting
// rules but never run through a shell.
type Packer struct {
	command *template.Template
}

// NewPacker parses the command template.
func NewPacker(command string) (*Packer, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	tmpl, err := template.New("packer").Option("missingkey=error").Parse(command)
	if err != nil {
		return nil, fmt.Errorf("packer command: %w", err)
	}
	return &Packer{command: tmpl}, nil
}

// Args returns the argument vector that packs input into output.
func (p *Packer) Args(input, output string) ([]string, error) {
	var buf bytes.Buffer
	data := struct{ Input, Output string }{input, output}
	if err := p.command.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("packer command: %w", err)
	}
	args, err := shlex.Split(buf.String())
	if err != nil {
		return nil, fmt.Errorf("packer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("packer command renders to nothing")
	}
	return args, nil
}

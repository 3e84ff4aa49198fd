// Package prompt asks the operator for missing values on the terminal.
package prompt

import (
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"

	"github.com/kumar303/ezboot/internal/credentials"
)

// ErrNotInteractive is returned when a value is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("cannot prompt for input: not running in an interactive terminal")

// Prompter asks questions on a terminal.
type Prompter struct {
	Stdio       terminal.Stdio
	Interactive bool
}

// New returns a Prompter bound to the process' standard streams.
func New() *Prompter {
	return &Prompter{
		Stdio:       terminal.Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr},
		Interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
}

func (p *Prompter) ask(q survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
	if !p.Interactive {
		return ErrNotInteractive
	}
	opts = append(opts, survey.WithStdio(p.Stdio.In, p.Stdio.Out, p.Stdio.Err))
	return survey.AskOne(q, response, opts...)
}

// Input asks for a single line of text. An empty answer is refused.
func (p *Prompter) Input(message string) (string, error) {
	var answer string
	err := p.ask(&survey.Input{Message: message}, &answer,
		survey.WithValidator(survey.Required),
		survey.WithShowCursor(true))
	return answer, err
}

// Password asks for a secret without echoing it.
func (p *Prompter) Password(message string) (string, error) {
	var answer string
	err := p.ask(&survey.Password{Message: message}, &answer, survey.WithValidator(survey.Required))
	return answer, err
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(message string, def bool) (bool, error) {
	answer := def
	err := p.ask(&survey.Confirm{Message: message, Default: def}, &answer)
	return answer, err
}

// Select asks to pick one of options and returns its index. def is the index selected initially.
func (p *Prompter) Select(message string, options []string, def int) (int, error) {
	q := &survey.Select{Message: message, Options: options}
	if def >= 0 && def < len(options) {
		q.Default = options[def]
	}

	var idx int
	err := p.ask(q, &idx)
	return idx, err
}

// Credentials asks for whatever part of c is missing until the operator confirms the answers.
func (p *Prompter) Credentials(label string, c credentials.Credentials) (credentials.Credentials, error) {
	if c.IsValid() {
		return c, nil
	}

	for {
		username, err := p.Input(label + " username:")
		if err != nil {
			return c, err
		}
		password, err := p.Password("password:")
		if err != nil {
			return c, err
		}
		ok, err := p.Confirm("OK?", true)
		if err != nil {
			return c, err
		}
		if ok {
			return credentials.Credentials{Username: username, Password: password, Source: "prompt"}, nil
		}
	}
}

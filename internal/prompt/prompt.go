// Package prompt asks the operator for input that was not given on the command line.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Common errors
var (
	// ErrInputRequired is returned when input is needed but no terminal is attached.
	ErrInputRequired = errors.New("input required")
	// ErrAborted is returned when the operator interrupts a prompt.
	ErrAborted = errors.New("aborted")
)

// Prompter asks the operator for values. Every call blocks until answered.
type Prompter interface {
	// Input asks for free text. validate, when non-nil, rejects answers.
	Input(message string, validate func(string) error) (string, error)
	// Password asks for a secret without echoing it.
	Password(message string) (string, error)
	// Select asks for one of options.
	Select(message string, options []string) (string, error)
	// Confirm asks a yes/no question; def is used when the operator just hits enter.
	Confirm(message string, def bool) (bool, error)
}

// Required is a validate func for Input that rejects empty answers.
func Required(value string) error {
	if value == "" {
		return errors.New("value is required")
	}
	return nil
}

// NonInteractive fails every prompt with ErrInputRequired.
type NonInteractive struct{}

func (NonInteractive) Input(message string, _ func(string) error) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrInputRequired, message)
}

func (NonInteractive) Password(message string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrInputRequired, message)
}

func (NonInteractive) Select(message string, _ []string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrInputRequired, message)
}

func (NonInteractive) Confirm(message string, _ bool) (bool, error) {
	return false, fmt.Errorf("%w: %s (pass --yes to skip)", ErrInputRequired, message)
}

// ForTerminal returns a Terminal prompter when in is an interactive
// terminal, and NonInteractive otherwise.
func ForTerminal(in *os.File, out io.Writer) Prompter {
	if in == nil || !term.IsTerminal(int(in.Fd())) {
		return NonInteractive{}
	}
	return NewTerminal(in, out)
}

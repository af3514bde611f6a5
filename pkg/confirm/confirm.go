// Package confirm provides the operator confirmation port. The engine asks
// once per batch; test doubles answer deterministically.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Port is the engine-facing confirmation capability.
type Port interface {
	// Confirm asks whether the described batch action may proceed.
	Confirm(action string) (bool, error)
}

// Auto always answers the same way. Used for --yes and in tests.
type Auto bool

func (a Auto) Confirm(string) (bool, error) { return bool(a), nil }

// Prompter asks on a terminal.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

// NewPrompter wires stdin/stdout when nil is passed.
func NewPrompter(in io.Reader, out io.Writer) Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return Prompter{In: in, Out: out}
}

// Confirm asks for an explicit yes/no. Empty input declines.
func (p Prompter) Confirm(action string) (bool, error) {
	scanner := bufio.NewScanner(p.In)
	for {
		if _, err := fmt.Fprintf(p.Out, "%s [y/N]: ", action); err != nil {
			return false, err
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, err
			}
			return false, nil
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		default:
			if _, err := fmt.Fprintln(p.Out, "Please answer yes or no."); err != nil {
				return false, err
			}
		}
	}
}

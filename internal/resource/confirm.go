package resource

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

var (
	// AlwaysConfirm approves without asking, for --yes flags.
	AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

	// NeverConfirm declines everything.
	NeverConfirm Confirmer = ConfirmFunc(func(string) bool { return false })
)

// PromptConfirmer writes "<prompt> [y/N]: " to out and reads one line from
// in. Only "y" or "yes" approve.
func PromptConfirmer(in io.Reader, out io.Writer) Confirmer {
	reader, ok := in.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(in)
	}
	return ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

// Package repl is the command-line conversation surface.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mzubac125/azure-sql-chatbot/internal/agent"
)

const Prompt = "Ask a question about your database (or 'quit'): "

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (agent.Answer, error)
}

type styles struct {
	prompt lipgloss.Style
	label  lipgloss.Style
	err    lipgloss.Style
}

// newStyles binds styles to out so color is only emitted to terminals.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		prompt: r.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true),
		label:  r.NewStyle().Foreground(lipgloss.Color("#5FAFFF")).Bold(true),
		err:    r.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true),
	}
}

// Run reads questions from in until "quit", EOF, or ctx is done. Per-question
// errors are printed and the loop keeps reading. Cancelling ctx returns
// promptly even while waiting for input.
func Run(ctx context.Context, in io.Reader, out io.Writer, asker Asker) error {
	st := newStyles(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// stdin reader goroutine -> lines into channel
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "\n"+st.prompt.Render(Prompt))

		var (
			text string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case text, ok = <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-scanErr
			}
		}

		input := strings.TrimSpace(text)
		if strings.EqualFold(input, "quit") {
			return nil
		}
		if input == "" {
			continue
		}

		ans, err := asker.Ask(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(out)
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", st.err.Render("Error:"), err)
			continue
		}
		fmt.Fprintf(out, "\n%s\n%s\n", st.label.Render("Answer:"), ans.Text)
	}
}

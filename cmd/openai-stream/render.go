package main

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const defaultWidth = 80

// renderer writes response text to the terminal. Plain output is written as it
// arrives; markdown output is buffered and rendered once the response is complete.
type renderer struct {
	out      io.Writer
	markdown bool
	tty      bool
	width    int
	buf      strings.Builder
}

func newRenderer(out io.Writer, markdown bool) *renderer {
	r := &renderer{out: out, markdown: markdown, width: defaultWidth}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

// consume writes pieces until the channel is closed.
func (r *renderer) consume(pieces <-chan string) error {
	for piece := range pieces {
		if err := r.write(piece); err != nil {
			return err
		}
	}
	return r.flush()
}

func (r *renderer) write(piece string) error {
	if r.markdown {
		r.buf.WriteString(piece)
		return nil
	}
	_, err := io.WriteString(r.out, piece)
	return err
}

func (r *renderer) flush() error {
	if !r.markdown {
		_, err := io.WriteString(r.out, "\n")
		return err
	}

	style := glamour.WithAutoStyle()
	if !r.tty {
		style = glamour.WithStandardStyle("notty")
	}
	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(r.width))
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := tr.Render(r.buf.String())
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	r.buf.Reset()
	_, err = io.WriteString(r.out, out)
	return err
}

// summary describes a finished response for the footer.
type summary struct {
	FinishReason string
	Chunks       int
	Skipped      int
	Tokens       int
	Elapsed      time.Duration
}

func (s summary) String() string {
	parts := []string{cmp.Or(s.FinishReason, "unfinished")}
	if s.Chunks > 0 {
		parts = append(parts, fmt.Sprintf("%d chunks", s.Chunks))
	}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.Skipped))
	}
	if s.Tokens > 0 {
		parts = append(parts, fmt.Sprintf("%d tokens", s.Tokens))
	}
	parts = append(parts, s.Elapsed.Round(time.Millisecond).String())
	return strings.Join(parts, " · ")
}

// footer writes the summary line, dimmed when writing to a terminal.
func (r *renderer) footer(s summary) error {
	line := "── " + s.String()
	if r.tty {
		line = lipgloss.NewStyle().Faint(true).Render(line)
	}
	_, err := fmt.Fprintln(r.out, line)
	return err
}

// Package console writes answers to the terminal and reports tool errors on stderr.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer that picks its style from the terminal background.
func NewRenderer(width int) (Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// AnswerSink prints the answer. Markdown is rendered only when a renderer is set.
type AnswerSink struct {
	out    io.Writer
	render Renderer
}

// Option configures an AnswerSink.
type Option func(*AnswerSink)

// WithRenderer forces a renderer, or disables rendering when nil.
func WithRenderer(r Renderer) Option {
	return func(s *AnswerSink) {
		s.render = r
	}
}

// NewAnswerSink creates a sink on out. When out is a terminal the answer is
// rendered with glamour, otherwise the raw markdown is written.
func NewAnswerSink(out io.Writer, opts ...Option) *AnswerSink {
	s := &AnswerSink{out: out}
	if IsTerminal(out) {
		width := 0
		if f, ok := out.(*os.File); ok {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil {
				width = w
			}
		}
		if r, err := NewRenderer(width); err == nil {
			s.render = r
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write implements ports.AnswerSink.
func (s *AnswerSink) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := text
	if s.render != nil {
		rendered, err := s.render(text)
		if err != nil {
			return fmt.Errorf("failed to render answer: %w", err)
		}
		out = rendered
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := io.WriteString(s.out, out)
	return err
}

// ErrorSink prints tool errors, coloured when the output supports it.
type ErrorSink struct {
	out *termenv.Output
}

// NewErrorSink creates an error reporter on w (usually os.Stderr).
func NewErrorSink(w io.Writer) *ErrorSink {
	return &ErrorSink{out: termenv.NewOutput(w)}
}

// Report implements ports.ErrorSink.
func (s *ErrorSink) Report(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	label := s.out.String("Tool error:").Bold().Foreground(s.out.Color("#fb7185"))
	_, err := fmt.Fprintf(s.out, "%s %s\n", label, message)
	return err
}

// Package cliui provides reusable terminal UI helpers for minutes CLI
// commands: spinners, styles and markdown rendering.
package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// spinnerFrames matches bubbletea's spinner.Dot used by the watch TUI.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerTick = 80 * time.Millisecond

// Step runs fn and prints msg with a ✓ or ✗ and the elapsed time. On a
// terminal a spinner animates in place while fn runs; redirected output gets
// the final line only.
func Step(w io.Writer, msg string, fn func() error) error {
	stop := func() {}
	if isTerminal(w) {
		stop = spin(w, msg)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	stop()

	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	return err
}

// spin animates frames on w until the returned func is called. The func
// returns once the last frame has been written.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(spinnerTick)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
		})
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour,
// wrapped at 80 columns.
func RenderMarkdown(content string) (string, error) {
	return RenderMarkdownWidth(content, 80)
}

// RenderMarkdownWidth renders markdown wrapped at width columns. On error the
// raw content is returned alongside it.
func RenderMarkdownWidth(content string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

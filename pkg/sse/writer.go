package sse

import (
	"fmt"
	"io"
	"strings"
)

// WriteEvent frames ev onto w. Multi-line data is split into one "data:"
// field per line so a TeeReader reassembles it unchanged.
func WriteEvent(w io.Writer, ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteComment writes a comment line, used as a keep-alive.
func WriteComment(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, ": %s\n\n", text)
	return err
}

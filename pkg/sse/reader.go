package sse

import (
	"bufio"
	"io"
	"strings"
)

const maxLineSize = 1024 * 1024

// TeeReader parses events from an SSE stream and copies every raw line it
// consumes to a second writer. `minutes tail --record` points that writer at
// a file so a session can be replayed later; otherwise it is io.Discard.
type TeeReader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	pending Event
	started bool
}

func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	if dest == nil {
		dest = io.Discard
	}
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &TeeReader{scanner: scanner, dest: dest}
}

// Next blocks until a blank line closes an event and returns it. A trailing
// event without its closing blank line is still returned once the source is
// exhausted. Next returns nil, nil at end of stream.
func (r *TeeReader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if _, err := io.WriteString(r.dest, line+"\n"); err != nil {
			return nil, err
		}

		switch {
		case line == "":
			if ev := r.take(); ev != nil {
				return ev, nil
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		default:
			r.field(line)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return r.take(), nil
}

func (r *TeeReader) field(line string) {
	name, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch name {
	case "data":
		if r.started && r.pending.Data != "" {
			r.pending.Data += "\n"
		}
		r.pending.Data += value
	case "event":
		r.pending.Type = value
	case "id":
		r.pending.ID = value
	default:
		return
	}
	r.started = true
}

func (r *TeeReader) take() *Event {
	if !r.started {
		return nil
	}
	ev := r.pending
	r.pending = Event{}
	r.started = false
	return &ev
}

package sse

import (
	"bytes"
	"fmt"
	"time"
)

// Event is one server-sent event. Multi-line data is sent as one data field
// per line.
type Event struct {
	ID    string
	Type  string
	Retry time.Duration
	Data  []byte
}

func (ev Event) Format() []byte {
	var b bytes.Buffer

	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	if ev.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", int(ev.Retry/time.Millisecond))
	}
	for _, line := range bytes.Split(ev.Data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	return b.Bytes()
}

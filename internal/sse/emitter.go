package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Emitter writes events to a buffered stream, flushing after each one.
// Event ids are assigned in send order.
type Emitter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	flush  func() error
	stream string
	seq    int
}

func NewBufioEmitter(bw *bufio.Writer, stream string) *Emitter {
	return &Emitter{w: bw, flush: bw.Flush, stream: stream}
}

func (e *Emitter) Send(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.send(ev)
}

func (e *Emitter) send(ev Event) error {
	if ev.ID == "" {
		e.seq++
		ev.ID = strconv.Itoa(e.seq)
	}
	if _, err := e.w.Write(ev.Format()); err != nil {
		return err
	}
	if err := e.flush(); err != nil {
		log.Warnf("failed to flush %s stream, client gone: %v", e.stream, err)
		return err
	}
	return nil
}

// SendJSON sends v encoded as JSON in an event of type typ.
func (e *Emitter) SendJSON(typ string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", e.stream, err)
	}
	return e.Send(Event{Type: typ, Data: b})
}

func (e *Emitter) Heartbeat() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.WriteString(": ping\n\n"); err != nil {
		return err
	}
	return e.flush()
}

// Lines returns a writer that sends every complete line written to it as an
// event of type typ. A trailing partial line is held until its newline.
func (e *Emitter) Lines(typ string) io.Writer {
	return &lineWriter{e: e, typ: typ}
}

type lineWriter struct {
	e   *Emitter
	typ string
	buf []byte
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		i := bytes.IndexByte(lw.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		line := append([]byte(nil), lw.buf[:i]...)
		lw.buf = lw.buf[i+1:]
		if err := lw.e.Send(Event{Type: lw.typ, Data: line}); err != nil {
			return len(p), err
		}
	}
}

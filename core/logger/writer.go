package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// lineWriter hands finished lines to a single goroutine that writes them to
// every output through one buffer. The buffer is flushed whenever the queue
// runs dry, so a quiet process never holds log lines back.
type lineWriter struct {
	mu     sync.RWMutex
	closed bool

	lines   chan []byte
	flushes chan chan error
	done    chan struct{}

	out *bufio.Writer
	err error // owned by the loop goroutine until done is closed
}

func newLineWriter(outputs []io.Writer, queue int) *lineWriter {
	if queue <= 0 {
		queue = 256
	}
	w := &lineWriter{
		lines:   make(chan []byte, queue),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
		out:     bufio.NewWriter(io.MultiWriter(outputs...)),
	}
	go w.loop()
	return w
}

func (w *lineWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flush()
				return
			}
			w.write(line)
			if len(w.lines) == 0 {
				w.flush()
			}
		case ack := <-w.flushes:
			ack <- w.flush()
		}
	}
}

func (w *lineWriter) write(line []byte) {
	if _, err := w.out.Write(line); err != nil && w.err == nil {
		w.err = err
	}
}

func (w *lineWriter) flush() error {
	if err := w.out.Flush(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

// Write queues a copy of line. It blocks while the queue is full.
func (w *lineWriter) Write(line []byte) error {
	if len(line) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- append([]byte(nil), line...)
	return nil
}

// Flush waits until every queued line has reached the outputs.
func (w *lineWriter) Flush() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	ack := make(chan error, 1)
	w.flushes <- ack
	return <-ack
}

// Close drains the queue and returns the first write error, if any.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.mu.Unlock()
	<-w.done
	return w.err
}

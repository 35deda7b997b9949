package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// sink is one output. A sink that fails once is skipped from then on so a
// broken log file does not silence stdout.
type sink struct {
	buf *bufio.Writer
	err error
}

// asyncWriter fans log lines out to its sinks from a single goroutine. Lines
// queued together are written as a batch and flushed once.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}

	closeMu sync.RWMutex
	closed  bool

	errMu    sync.Mutex
	firstErr error

	sinks []*sink
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*sink, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, &sink{buf: bufio.NewWriterSize(w, bufSize)})
		}
	}
	aw := &asyncWriter{
		queue:    make(chan []byte, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		sinks:    sinks,
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				w.flush()
				return
			}
			w.write(data)
			if !w.drain() {
				w.flush()
				return
			}
			w.flush()
		case ack := <-w.flushReq:
			ack <- w.flush()
		}
	}
}

// drain writes whatever is already queued. It reports false once the queue is closed.
func (w *asyncWriter) drain() bool {
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				return false
			}
			w.write(data)
		default:
			return true
		}
	}
}

func (w *asyncWriter) write(p []byte) {
	for _, s := range w.sinks {
		if s.err != nil {
			continue
		}
		if _, err := s.buf.Write(p); err != nil {
			s.err = err
			w.recordErr(err)
		}
	}
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		if s.err != nil {
			continue
		}
		if err := s.buf.Flush(); err != nil {
			s.err = err
			w.recordErr(err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Write queues a copy of p. It blocks while the queue is full so no line is dropped.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	data := make([]byte, len(p))
	copy(data, p)
	w.queue <- data
	return nil
}

// Flush waits until everything queued before the call reaches the sinks.
func (w *asyncWriter) Flush() error {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return w.err()
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue and reports the first write error of any sink.
func (w *asyncWriter) Close() error {
	w.closeMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.closeMu.Unlock()
	<-w.done
	return w.err()
}

func (w *asyncWriter) recordErr(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.firstErr == nil {
		w.firstErr = err
	}
}

func (w *asyncWriter) err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.firstErr
}

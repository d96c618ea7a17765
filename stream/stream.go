// Package stream reassembles an incremental byte source into logical lines
// and feeds each line to a pluggable decoding strategy, producing a lazy,
// cancelable pull sequence of typed elements.
//
// The decoded sequence is independent of how the source splits its reads:
// a line is only ever flushed on its terminator (or once at exhaustion),
// so partial records are never lost across I/O boundaries.
package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

const readChunkSize = 4096

// DecodeError reports a strategy failure that terminated the stream,
// carrying the offending line. Source read failures are returned as-is,
// not wrapped.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream decode failed on line %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Stream is a finite, non-restartable sequence of decoded elements.
// Next returns io.EOF when the source is exhausted, or the terminal error
// that ended the sequence. A Stream is consumed by a single goroutine.
type Stream[T any] struct {
	ctx      context.Context
	src      io.ReadCloser
	strategy Strategy[T]

	chunk   []byte
	pending []byte
	lineBuf []byte

	eof  bool
	done bool
	err  error
}

// Decode starts decoding the byte source with the given strategy. The
// context is consulted once per decoded element; when it is cancelled the
// sequence ends with the context error and no further bytes are consumed.
// The source is closed when the sequence ends for any reason.
func Decode[T any](ctx context.Context, src io.ReadCloser, strategy Strategy[T]) *Stream[T] {
	return &Stream[T]{
		ctx:      ctx,
		src:      src,
		strategy: strategy,
		chunk:    make([]byte, readChunkSize),
	}
}

// Next returns the next decoded element. It returns io.EOF at normal
// exhaustion; any other error is terminal and repeated on every
// subsequent call.
func (s *Stream[T]) Next() (T, error) {
	var zero T
	if s.err != nil {
		return zero, s.err
	}
	if s.done {
		return zero, io.EOF
	}
	if s.ctx != nil {
		if err := s.ctx.Err(); err != nil {
			s.fail(err)
			return zero, err
		}
	}

	for {
		line, ok, err := s.nextLine()
		if err != nil {
			s.fail(err)
			return zero, err
		}
		if !ok {
			s.finish()
			return zero, io.EOF
		}
		v, emit, err := s.strategy.Decode(line)
		if err != nil {
			s.fail(&DecodeError{Line: line, Err: err})
			return zero, s.err
		}
		if emit {
			return v, nil
		}
	}
}

// Close releases the source early. Subsequent Next calls return io.EOF.
func (s *Stream[T]) Close() error {
	if s.done || s.err != nil {
		return nil
	}
	s.done = true
	return s.src.Close()
}

// nextLine returns the next logical line. A LF terminates a line and a CR
// immediately before it is dropped; a bare CR is not a terminator. At
// source exhaustion a non-empty remainder is flushed once.
func (s *Stream[T]) nextLine() (string, bool, error) {
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			s.lineBuf = append(s.lineBuf, s.pending[:i]...)
			s.pending = s.pending[i+1:]
			line := s.lineBuf
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			s.lineBuf = s.lineBuf[:0]
			return string(line), true, nil
		}

		s.lineBuf = append(s.lineBuf, s.pending...)
		s.pending = nil

		if s.eof {
			if len(s.lineBuf) > 0 {
				line := string(s.lineBuf)
				s.lineBuf = s.lineBuf[:0]
				return line, true, nil
			}
			return "", false, nil
		}

		n, err := s.src.Read(s.chunk)
		if n > 0 {
			s.pending = s.chunk[:n]
		}
		if err == io.EOF {
			s.eof = true
		} else if err != nil {
			return "", false, err
		}
	}
}

func (s *Stream[T]) fail(err error) {
	s.err = err
	_ = s.src.Close()
}

func (s *Stream[T]) finish() {
	s.done = true
	_ = s.src.Close()
}

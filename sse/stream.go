package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"lovebug/config"
	"lovebug/security"
)

// Stream is a finite, non-restartable sequence of content deltas. Use it
// like bufio.Scanner:
//
//	s := client.StreamMessages(ctx, msgs, opts)
//	defer s.Close()
//	for s.Next() {
//		fmt.Print(s.Text())
//	}
//	if err := s.Err(); err != nil { ... }
//
// A Stream is not safe for concurrent use. To stop it from another
// goroutine, cancel the context it was opened with.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser
	dec    *Decoder

	maxLen    int
	total     int
	sanitize  bool
	requestID string
	report    func(bool)

	cur  string
	err  error
	done bool
	once sync.Once
}

// Next advances to the next delta. It returns false when the stream has
// completed or failed; Err distinguishes the two.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}

	if !s.dec.Next() {
		s.finish(s.readError())
		return false
	}

	delta := s.dec.Delta()
	if s.sanitize {
		delta = security.SanitizeInput(delta)
	}
	s.total += utf8.RuneCountInString(delta)
	if s.total > s.maxLen {
		s.finish(&Error{Kind: KindLengthExceeded, Limit: s.maxLen})
		return false
	}

	s.cur = delta
	return true
}

// Text returns the delta produced by the last call to Next.
func (s *Stream) Text() string {
	return s.cur
}

// Err returns the failure that ended the stream, or nil if it completed.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the connection. Closing early counts as cancellation for
// any later Next.
func (s *Stream) Close() error {
	if !s.done {
		s.finish(&Error{Kind: KindCanceled})
	}
	return nil
}

// Collect drains the stream and returns the assembled text.
func (s *Stream) Collect() (string, error) {
	defer s.Close()

	var b strings.Builder
	for s.Next() {
		b.WriteString(s.Text())
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Stream) readError() error {
	err := s.dec.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrLineTooLong) {
		return &Error{Kind: KindLengthExceeded, Limit: s.maxLen, Err: err}
	}
	if s.ctx != nil && s.ctx.Err() != nil {
		return contextError(s.ctx, err)
	}
	if s.report != nil {
		s.report(false)
	}
	return &Error{Kind: KindTransport, Err: err}
}

func (s *Stream) finish(err error) {
	s.once.Do(func() {
		s.done = true
		s.err = err
		s.cur = ""
		if s.body != nil {
			s.body.Close()
		}
		if s.cancel != nil {
			s.cancel()
		}

		fields := map[string]any{
			"requestId":      s.requestID,
			"responseLength": s.total,
		}
		if s.dec != nil && s.dec.Skipped() > 0 {
			fields["skipped"] = s.dec.Skipped()
		}
		if err != nil {
			fields["error"] = err.Error()
			config.SecureLog("error", "completion stream failed", fields)
			return
		}
		config.SecureLog("info", "completion stream finished", fields)
	})
}

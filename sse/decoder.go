package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"lovebug/config"
)

const doneSentinel = "[DONE]"

// DefaultMaxLine caps how many bytes the decoder buffers while waiting for
// the end of a line.
const DefaultMaxLine = 1 << 20

// ErrLineTooLong is reported by Err when a line exceeds the decoder's cap.
var ErrLineTooLong = errors.New("sse: event line too long")

// Paths tried, in order, for the text delta of one event. The first is the
// extension backend's own format; the others cover OpenAI-compatible servers.
var deltaPaths = []string{
	"content",
	"choices.0.delta.content",
	"choices.0.message.content",
}

// Decoder turns a text/event-stream body into content deltas. Lines are
// split on '\n' as bytes arrive; a line cut by a read boundary is carried
// into the next read, so multi-byte characters are never split.
type Decoder struct {
	r       io.Reader
	buf     []byte
	carry   []byte
	maxLine int
	lines   []string
	delta   string
	done    bool
	eof     bool
	err     error
	skipped int
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, buf: make([]byte, 4096), maxLine: DefaultMaxLine}
}

// SetMaxLine changes the line cap. Values below one are ignored.
func (d *Decoder) SetMaxLine(n int) {
	if n > 0 {
		d.maxLine = n
	}
}

// Next advances to the next non-empty delta. It returns false once the
// [DONE] sentinel is seen, the body ends, or reading fails (see Err).
func (d *Decoder) Next() bool {
	for !d.done {
		for len(d.lines) > 0 {
			line := d.lines[0]
			d.lines = d.lines[1:]

			delta, ok := d.parseLine(line)
			if d.done {
				return false
			}
			if ok {
				d.delta = delta
				return true
			}
		}

		if d.eof {
			d.done = true
			return false
		}
		d.fill()
	}
	return false
}

// Delta returns the text produced by the last successful Next.
func (d *Decoder) Delta() string {
	return d.delta
}

// Err returns the read error that stopped decoding, if any. Reaching the end
// of the body or [DONE] is not an error.
func (d *Decoder) Err() error {
	return d.err
}

// Skipped counts data lines dropped because they were not valid JSON.
func (d *Decoder) Skipped() int {
	return d.skipped
}

func (d *Decoder) fill() {
	n, err := d.r.Read(d.buf)
	if n > 0 {
		d.carry = append(d.carry, d.buf[:n]...)
		for {
			i := bytes.IndexByte(d.carry, '\n')
			if i < 0 {
				break
			}
			d.lines = append(d.lines, string(d.carry[:i]))
			d.carry = d.carry[i+1:]
		}
		if len(d.carry) > d.maxLine {
			d.carry = nil
			d.eof = true
			d.err = ErrLineTooLong
			return
		}
	}
	if err == nil {
		return
	}

	d.eof = true
	if !errors.Is(err, io.EOF) {
		d.err = err
		return
	}
	// A final event without a trailing newline still counts.
	if len(d.carry) > 0 {
		d.lines = append(d.lines, string(d.carry))
		d.carry = nil
	}
}

func (d *Decoder) parseLine(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	payload = strings.TrimSpace(payload)

	if payload == doneSentinel {
		d.done = true
		return "", false
	}
	if payload == "" {
		return "", false
	}

	if !gjson.Valid(payload) {
		d.skipped++
		if config.Debug {
			config.DebugLog.Printf("[SSE] skipping malformed event (%d bytes)", len(payload))
		}
		return "", false
	}

	for _, path := range deltaPaths {
		v := gjson.Get(payload, path)
		if v.Type == gjson.String {
			if v.Str == "" {
				return "", false
			}
			return v.Str, true
		}
	}
	return "", false
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when the context ends before a line arrives.
var ErrInputCancelled = errors.New("input canceled")

type line struct {
	err  error
	text string
}

// LineReader reads trimmed lines from a terminal without blocking past
// context cancellation. A single goroutine owns the underlying reader, so a
// line typed after a cancelled read is delivered to the next ReadLine.
type LineReader struct {
	src   io.Reader
	lines chan line
	start sync.Once
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{src: r, lines: make(chan line)}
}

func (r *LineReader) scan() {
	sc := bufio.NewScanner(r.src)
	for sc.Scan() {
		r.lines <- line{text: sc.Text()}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	r.lines <- line{err: err}
	close(r.lines)
}

// ReadLine returns the next line with surrounding space removed. It returns
// io.EOF once the input is exhausted.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	r.start.Do(func() { go r.scan() })

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case l, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(l.text), l.err
	}
}

// Confirm prints question with a [y/N] hint and reports whether the answer
// was y or yes. End of input counts as no.
func (r *LineReader) Confirm(ctx context.Context, w io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprint(w, FormatPrompt(question+" [y/N]")); err != nil {
		return false, err
	}

	answer, err := r.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

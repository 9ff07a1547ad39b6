package controller

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Prompt is written before every command read.
const Prompt = "> "

// Reader reads command lines, prompting before each one. Lines are scanned in
// a background goroutine so that a pending read can be abandoned when the
// context is cancelled.
type Reader struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
	err   error
}

// NewReader creates a reader over in that prompts on out.
func NewReader(in io.Reader, out io.Writer) *Reader {
	return &Reader{
		in:    in,
		out:   out,
		lines: make(chan string),
	}
}

// Next prompts and returns the next line. It returns io.EOF at end of input.
func (r *Reader) Next(ctx context.Context) (string, error) {
	r.once.Do(func() { go r.scan() })

	fmt.Fprint(r.out, Prompt)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			if r.err != nil {
				return "", fmt.Errorf("read command: %w", r.err)
			}
			return "", io.EOF
		}
		return line, nil
	}
}

func (r *Reader) scan() {
	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		r.lines <- scanner.Text()
	}
	r.err = scanner.Err()
	close(r.lines)
}

// IsTerminal reports whether in is an interactive terminal.
func IsTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
)

// ErrAborted is returned by a LineReader when the user aborts the prompt.
var ErrAborted = errors.New("prompt aborted")

// LineReader reads user input one line at a time. ReadLine returns io.EOF
// when input ends.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// NewStdinReader returns a line editor with history when stdin is a
// terminal, and a plain line scanner otherwise.
func NewStdinReader() LineReader {
	if IsTerminal(os.Stdin) && liner.TerminalSupported() {
		return NewTerminalReader()
	}
	return NewScannerReader(os.Stdin, os.Stdout)
}

// TerminalReader is a line editor with arrow-key history.
type TerminalReader struct {
	state *liner.State
}

// NewTerminalReader puts the terminal in line editing mode until Close.
func NewTerminalReader() *TerminalReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &TerminalReader{state: state}
}

// ReadLine prompts for one line. Non-empty lines are added to the history.
func (r *TerminalReader) ReadLine(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		r.state.AppendHistory(line)
	}
	return line, nil
}

// Close restores the terminal.
func (r *TerminalReader) Close() error {
	return r.state.Close()
}

// ScannerReader reads lines from any reader.
type ScannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewScannerReader reads from in and writes prompts to out.
func NewScannerReader(in io.Reader, out io.Writer) *ScannerReader {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &ScannerReader{scanner: scanner, out: out}
}

// ReadLine writes prompt and returns the next line without its newline.
func (r *ScannerReader) ReadLine(prompt string) (string, error) {
	if r.out != nil && prompt != "" {
		fmt.Fprint(r.out, prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// Close is a no-op.
func (r *ScannerReader) Close() error {
	return nil
}

// Output routing for the conversation loop.
//
// Information Hiding:
// - Console and printer device writes
// - Markdown rendering of buffered answers

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

// Output writes to the console and, when enabled, appends to a printer
// device such as the DevTerm thermal printer.
type Output struct {
	mu          sync.Mutex
	console     io.Writer
	printerPath string
	renderer    *glamour.TermRenderer
	logger      *zap.Logger
}

// OutputOption configures an Output.
type OutputOption func(*Output)

// WithPrinter mirrors answers and prompts to the device at path. It is
// ignored when the device does not exist.
func WithPrinter(path string) OutputOption {
	return func(o *Output) {
		if PrinterAvailable(path) {
			o.printerPath = path
		}
	}
}

// WithMarkdown renders buffered answers as markdown wrapped at width columns.
func WithMarkdown(width int) OutputOption {
	return func(o *Output) {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			o.logger.Warn("markdown renderer unavailable", zap.Error(err))
			return
		}
		o.renderer = r
	}
}

// WithOutputLogger sets the logger.
func WithOutputLogger(l *zap.Logger) OutputOption {
	return func(o *Output) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOutput creates an Output writing to console.
func NewOutput(console io.Writer, opts ...OutputOption) *Output {
	o := &Output{console: console, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PrinterAvailable reports whether the printer device exists.
func PrinterAvailable(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// PrinterEnabled reports whether output is mirrored to a printer.
func (o *Output) PrinterEnabled() bool {
	return o.printerPath != ""
}

// Print writes text to the console and the printer.
func (o *Output) Print(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.console, text)
	o.toPrinter(text)
}

// Notice writes text to the console only.
func (o *Output) Notice(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.console, text)
}

// Record writes text to the printer only.
func (o *Output) Record(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.toPrinter(text)
}

// Delta writes one streamed chunk to the console as it arrives.
func (o *Output) Delta(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	io.WriteString(o.console, text)
}

// Answer writes a complete answer, rendered as markdown when enabled.
// The printer always receives the plain text.
func (o *Output) Answer(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rendered := text
	if o.renderer != nil {
		if out, err := o.renderer.Render(text); err == nil {
			rendered = strings.TrimRight(out, "\n")
		} else {
			o.logger.Debug("markdown rendering failed", zap.Error(err))
		}
	}
	fmt.Fprintln(o.console, rendered)
	o.toPrinter(text)
}

func (o *Output) toPrinter(text string) {
	if o.printerPath == "" {
		return
	}
	f, err := os.OpenFile(o.printerPath, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		o.logger.Warn("printer unavailable", zap.String("path", o.printerPath), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, text); err != nil {
		o.logger.Warn("printer write failed", zap.String("path", o.printerPath), zap.Error(err))
	}
}

// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Streaming protocol details

package llm

import (
	"context"
	"errors"
	"io"
)

// Provider defines the abstract interface for LLM providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends a request and waits for the whole reply.
	Complete(ctx context.Context, req Request) (Response, error)

	// Stream sends a request and returns the reply as it is generated.
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Stream yields the text deltas of one reply in order.
// It is finite and cannot be restarted.
type Stream interface {
	// Recv returns the next non-empty delta, or io.EOF after the last one.
	Recv() (string, error)
	// Close releases the underlying connection.
	Close() error
}

// Collect drains s, calling onDelta for every delta as it arrives, and
// returns the concatenated reply. The stream is closed on return.
// On error the text received so far is returned with it.
func Collect(s Stream, onDelta func(string)) (string, error) {
	defer s.Close()

	var full []byte
	for {
		delta, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return string(full), nil
		}
		if err != nil {
			return string(full), err
		}
		full = append(full, delta...)
		if onDelta != nil {
			onDelta(delta)
		}
	}
}

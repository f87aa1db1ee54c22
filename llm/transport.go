package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/sjson"
)

type extrasKey struct{}

// withExtras attaches body fields for extrasTransport to add.
func withExtras(ctx context.Context, e Extras) context.Context {
	fields := e.Fields()
	if len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, extrasKey{}, fields)
}

// extrasTransport adds the Extras carried by the request context to JSON
// request bodies, and drops the empty bearer header go-openai sends when no
// API key is configured.
type extrasTransport struct {
	base http.RoundTripper
}

func newExtrasTransport(base http.RoundTripper) *extrasTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &extrasTransport{base: base}
}

func (t *extrasTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	fields, _ := r.Context().Value(extrasKey{}).(map[string]string)
	emptyAuth := r.Header.Get("Authorization") == "Bearer "
	if len(fields) == 0 && !emptyAuth {
		return t.base.RoundTrip(r)
	}

	out := r.Clone(r.Context())
	if emptyAuth {
		out.Header.Del("Authorization")
	}

	if len(fields) > 0 && r.Body != nil && r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		for key, val := range fields {
			body, err = sjson.SetBytes(body, key, val)
			if err != nil {
				return nil, fmt.Errorf("failed to set %s: %w", key, err)
			}
		}
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.ContentLength = int64(len(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	return t.base.RoundTrip(out)
}

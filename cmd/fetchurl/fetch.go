package main

import (
	"fmt"
	"io"
	"net/http"

	perrors "github.com/jmgilman/go/errors"

	"github.com/osmike/lfucache"
)

// fetcher downloads URLs. Its Fetch method has the shape lfucache wraps.
type fetcher struct {
	client *http.Client
}

// Fetch GETs the URL in the first positional argument and returns the body,
// truncated to the "first_n" named argument when it is positive.
func (f *fetcher) Fetch(a lfucache.Args) ([]byte, error) {
	if len(a.Positional) != 1 {
		return nil, perrors.Newf(perrors.CodeInvalidInput, "expected 1 positional argument, got %d", len(a.Positional))
	}
	url, ok := a.Positional[0].(string)
	if !ok {
		return nil, perrors.Newf(perrors.CodeInvalidInput, "url must be a string, got %T", a.Positional[0])
	}
	firstN := 0
	if v, ok := a.Get("first_n"); ok {
		n, ok := v.(int)
		if !ok {
			return nil, perrors.Newf(perrors.CodeInvalidInput, "first_n must be an int, got %T", v)
		}
		firstN = n
	}

	resp, err := f.client.Get(url)
	if err != nil {
		return nil, perrors.Wrapf(err, perrors.CodeNetwork, "failed to GET %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, perrors.Newf(perrors.CodeNetwork, "unexpected HTTP status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if firstN > 0 {
		body = io.LimitReader(resp.Body, int64(firstN))
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeNetwork, fmt.Sprintf("failed to read response body from %s", url))
	}
	return data, nil
}

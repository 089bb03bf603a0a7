// Package transit wraps the NJ Transit bus and rail data APIs. Both APIs
// authenticate with a daily token and accept multipart form posts; the shared
// plumbing here handles token injection, one re-auth retry on 401, and JSON
// decoding into the domain model.
package transit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"commutewatch/internal/types"
)

// Doer is the outbound HTTP contract, satisfied by external.BaseClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// postForm builds and executes a multipart form POST, the request shape every
// NJ Transit endpoint expects.
func postForm(ctx context.Context, doer Doer, url string, fields map[string]string) (*http.Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, types.NewAppError(
				types.ErrCodeInternalUnexpected,
				fmt.Sprintf("building form field %q", name),
				err,
			)
		}
	}
	if err := w.Close(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "finalizing form body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "text/plain")

	return doer.Do(req)
}

// callAPI posts an authenticated request, retrying once with a fresh token
// when the provider rejects the cached one, and decodes the JSON response
// into out.
func callAPI(ctx context.Context, doer Doer, tokens *TokenSource, url string, fields map[string]string, out any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := tokens.Token(ctx)
		if err != nil {
			return err
		}

		withToken := make(map[string]string, len(fields)+1)
		for k, v := range fields {
			withToken[k] = v
		}
		withToken["token"] = token

		resp, err := postForm(ctx, doer, url, withToken)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			tokens.Invalidate()
			continue
		}

		return decodeResponse(resp, out)
	}

	return types.NewAppError(
		types.ErrCodeUpstreamAuth,
		"provider rejected credentials after token refresh",
		nil,
	)
}

// decodeResponse reads and unmarshals a response body, closing it.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(
			types.ErrCodeUpstreamTransit,
			fmt.Sprintf("provider returned status %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamTransit, "reading provider response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamTransit, "decoding provider response", err)
	}
	return nil
}

package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// httpSource downloads images over HTTP(S).
type httpSource struct {
	client HTTPClient
}

func NewHTTPSource(client HTTPClient) Source {
	if client == nil {
		client = DefaultHTTPClient(0)
	}
	return &httpSource{client: client}
}

func (s *httpSource) Scheme() string { return SchemeHTTPS }

func (s *httpSource) Read(ctx context.Context, ref string) ([]byte, error) {
	resp, err := s.client.Get(ctx, ref, map[string]string{"Accept": "image/*"})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d body: %s", ref, resp.StatusCode(), responseSnippet(body))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%s returned an empty body", ref)
	}
	return body, nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/optimus/pkg/httpclient"
)

const (
	SchemeFile  = "file"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeS3    = "s3"
)

// Registry implements Resolver keyed by URL scheme.
type Registry struct {
	mu       sync.RWMutex
	byScheme map[string]Source
}

// NewRegistry builds a registry for the provided sources keyed by their scheme.
func NewRegistry(srcs ...Source) *Registry {
	reg := &Registry{byScheme: make(map[string]Source)}
	for _, s := range srcs {
		reg.Register(s.Scheme(), s)
	}
	return reg
}

// Register associates src with scheme, replacing any previous source.
func (r *Registry) Register(scheme string, src Source) {
	if src == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(scheme))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.byScheme[key] = src
	r.mu.Unlock()
}

// SourceFor selects the source for ref. References without a scheme are files.
func (r *Registry) SourceFor(ref string) (Source, error) {
	if r == nil {
		return nil, fmt.Errorf("source registry is nil")
	}
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("image reference is empty")
	}

	scheme := schemeOf(ref)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if src, ok := r.byScheme[scheme]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("no source registered for %q (scheme %q)", ref, scheme)
}

// Read resolves ref and reads it.
func (r *Registry) Read(ctx context.Context, ref string) ([]byte, error) {
	src, err := r.SourceFor(ref)
	if err != nil {
		return nil, err
	}
	data, err := src.Read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read %s source: %w", src.Scheme(), err)
	}
	return data, nil
}

// schemeOf returns the lower-cased scheme of ref, or "file" for plain paths.
// Single-letter schemes are treated as Windows drive letters.
func schemeOf(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || len(u.Scheme) < 2 {
		return SchemeFile
	}
	return strings.ToLower(u.Scheme)
}

// DefaultHTTPClient returns a tuned client for HTTP sources.
func DefaultHTTPClient(timeout time.Duration) HTTPClient { return httpclient.NewRestyClient(timeout) }

// DefaultRegistry wires up the file and HTTP sources, plus s3 when given.
func DefaultRegistry(client HTTPClient, s3 Source) *Registry {
	if client == nil {
		client = DefaultHTTPClient(30 * time.Second)
	}
	httpSrc := NewHTTPSource(client)

	reg := NewRegistry(NewFileSource())
	reg.Register(SchemeHTTP, httpSrc)
	reg.Register(SchemeHTTPS, httpSrc)
	if s3 != nil {
		reg.Register(SchemeS3, s3)
	}
	return reg
}

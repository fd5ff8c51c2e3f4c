package sources

import (
	"context"

	"github.com/samvad-hq/optimus/pkg/httpclient"
)

// Source reads the complete bytes of an image reference.
// Concrete implementations live in scheme-specific files (e.g., file.go).
type Source interface {
	Scheme() string
	Read(ctx context.Context, ref string) ([]byte, error)
}

// Resolver selects the Source able to read a reference.
type Resolver interface {
	SourceFor(ref string) (Source, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client

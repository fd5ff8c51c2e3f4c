package sources

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// fileSource reads local files, given as plain paths or file:// URLs.
type fileSource struct{}

func NewFileSource() Source { return fileSource{} }

func (fileSource) Scheme() string { return SchemeFile }

func (fileSource) Read(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := ref
	if strings.HasPrefix(strings.ToLower(ref), "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("parse file url %q: %w", ref, err)
		}
		path = u.Path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

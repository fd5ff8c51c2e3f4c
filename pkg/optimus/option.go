package optimus

import (
	"fmt"
	"strings"
)

// Option selects how the service processes an uploaded image.
type Option string

const (
	// OptionOptimize recompresses the image in its original format.
	OptionOptimize Option = "optimize"
	// OptionClean strips metadata.
	OptionClean Option = "clean"
	// OptionWebP converts the image to WebP.
	OptionWebP Option = "webp"
)

// Options lists the processing modes the service documents.
func Options() []Option {
	return []Option{OptionOptimize, OptionClean, OptionWebP}
}

// Valid reports whether o is one of the documented options.
func (o Option) Valid() bool {
	switch o {
	case OptionOptimize, OptionClean, OptionWebP:
		return true
	}
	return false
}

func (o Option) String() string { return string(o) }

// orDefault maps the empty option to OptionOptimize. Any other value,
// documented or not, is passed through untouched.
func (o Option) orDefault() Option {
	if o == "" {
		return OptionOptimize
	}
	return o
}

// ParseOption normalizes s and rejects values the service does not document.
// An empty string yields OptionOptimize.
func ParseOption(s string) (Option, error) {
	o := Option(strings.ToLower(strings.TrimSpace(s))).orDefault()
	if !o.Valid() {
		return "", fmt.Errorf("unsupported option %q (expected one of optimize, clean, webp)", s)
	}
	return o, nil
}

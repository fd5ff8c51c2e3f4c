package optimus

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const maxDetailLen = 256

// responseDetail extracts a short readable summary from an error body.
// HTML pages yield their title (or text), other textual bodies a trimmed
// snippet. Binary payloads yield nothing.
func responseDetail(header http.Header, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	mediaType := ""
	if header != nil {
		mediaType, _, _ = mime.ParseMediaType(header.Get("Content-Type"))
	}
	if mediaType == "" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(body))
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return htmlSummary(body)
	case strings.HasPrefix(mediaType, "text/"), mediaType == "application/json":
		return truncate(collapseSpace(string(body)))
	}
	return ""
}

func htmlSummary(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if title := collapseSpace(doc.Find("title").First().Text()); title != "" {
		return truncate(title)
	}
	if h1 := collapseSpace(doc.Find("h1").First().Text()); h1 != "" {
		return truncate(h1)
	}
	return truncate(collapseSpace(doc.Find("body").Text()))
}

// bodySnippet renders body for an error message without dumping image bytes.
func bodySnippet(body []byte) string {
	if len(body) == 0 {
		return "<empty>"
	}
	if !utf8.Valid(body) {
		return "<binary>"
	}
	return truncate(collapseSpace(string(body)))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	return s[:maxDetailLen] + "..."
}

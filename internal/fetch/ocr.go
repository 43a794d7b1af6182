package fetch

import (
	"context"
	"encoding/base64"
	"strings"
)

// NoopRecognizer satisfies watch.TextRecognizer when no OCR engine is
// configured. It never reports text.
type NoopRecognizer struct{}

// Recognize always reports that no text was found.
func (NoopRecognizer) Recognize(context.Context, []byte) (string, bool) {
	return "", false
}

// decodeInlineImage extracts the raw bytes of a base64 data URI. Boards
// occasionally inline the roster as an image, which is the only case where
// the fetcher can hand bytes to a recognizer without a second request.
func decodeInlineImage(src string) ([]byte, bool) {
	if !strings.HasPrefix(src, "data:image/") {
		return nil, false
	}
	idx := strings.Index(src, ";base64,")
	if idx < 0 {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(src[idx+len(";base64,"):])
	if err != nil {
		return nil, false
	}
	return raw, true
}

package translate

import (
	"net/http"
	"regexp"
)

var (
	textContentType    = regexp.MustCompile(`^(?:text/(?:plain|html|css|javascript|csv).*|application/(?:.*json|.*xml).*|image/svg\+xml.*)$`)
	compressedEncoding = regexp.MustCompile(`^(?:gzip|deflate|compress|br)`)
)

// IsContentTypeBinary reports whether a body of contentType must be base64
// encoded. Only a fixed set of textual types is passed through as text.
func IsContentTypeBinary(contentType string) bool {
	return !textContentType.MatchString(contentType)
}

// IsContentEncodingBinary reports whether contentEncoding names a compression scheme.
func IsContentEncodingBinary(contentEncoding string) bool {
	if contentEncoding == "" {
		return false
	}
	return compressedEncoding.MatchString(contentEncoding)
}

// isBinary decides the body encoding for a response header set.
// A textual content-type does not override a compressed content-encoding.
func isBinary(header http.Header) bool {
	if ct := header.Get("Content-Type"); ct != "" && IsContentTypeBinary(ct) {
		return true
	}
	return IsContentEncodingBinary(header.Get("Content-Encoding"))
}

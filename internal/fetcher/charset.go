package fetcher

import (
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// DecodeBody converts a fetched body to a UTF-8 string using the charset
// from the Content-Type header. Unknown or missing charsets, and decode
// failures, fall back to interpreting the bytes as-is.
func DecodeBody(body []byte, contentType string) string {
	name := charsetName(contentType)
	if name == "" || strings.EqualFold(name, "utf-8") {
		return string(body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func charsetName(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

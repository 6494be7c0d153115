package llm

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// ImageDataURL encodes an image as a data URL for an image_url content part.
func ImageDataURL(img []byte) string {
	mt := http.DetectContentType(img)
	if !strings.HasPrefix(mt, "image/") {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img)
}

// TrimToObject returns the text between the first '{' and the last '}',
// dropping any prose or markdown fence around a JSON payload.
func TrimToObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

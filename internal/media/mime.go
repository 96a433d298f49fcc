package media

import (
	"path"
	"strings"
)

// FileName derives an upload filename from the final path segment of a local
// resource reference.
func FileName(uri string) string {
	name := path.Base(strings.TrimSuffix(uri, "/"))
	if name == "." || name == "/" || name == "" {
		return "photo.jpg"
	}
	return name
}

// MIMEType infers the content type from a filename extension,
// case-insensitively. Unknown or missing extensions fall back to image/jpeg
// rather than erroring.
func MIMEType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

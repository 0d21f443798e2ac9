// Package upload validates submitted image files before anything is stored.
package upload

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/trashmap/trashmap-api/internal/pkg/storage"
)

// ErrUnsupportedType is returned for anything that is not an accepted image.
var ErrUnsupportedType = errors.New("unsupported file type")

// SniffLen is how many leading bytes ValidateImageBySniff looks at.
const SniffLen = 512

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".avif": true,
	".bmp":  true,
	".heic": true,
	// SVG stays excluded: scriptable content
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/avif": true,
	"image/bmp":  true,
}

// ValidateImageBySniff checks the filename extension and the first bytes of
// the content against the image whitelist and returns the content type to
// store the object with.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: only JPG, JPEG, PNG, GIF, WEBP, AVIF, BMP and HEIC images are accepted", ErrUnsupportedType)
	}
	if len(head) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}

	detected := http.DetectContentType(head)

	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", fmt.Errorf("%w: HTML content is not allowed", ErrUnsupportedType)
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", fmt.Errorf("%w: SVG/XML is not accepted", ErrUnsupportedType)
	}

	// AVIF and HEIC sniff as octet-stream; trust the extension for those.
	if detected == "application/octet-stream" && (ext == ".avif" || ext == ".heic") {
		return storage.ContentTypeForExt(ext), nil
	}

	if allowedMime[detected] {
		return detected, nil
	}

	return "", fmt.Errorf("%w: detected %s", ErrUnsupportedType, detected)
}

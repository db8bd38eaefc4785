package media

import (
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen covers every signature the detector needs for the image formats we accept.
const sniffLen = 3072

var allowedContentTypes = map[string]string{
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
	"image/png":  "image/png",
	"image/webp": "image/webp",
}

var extByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// normalizeDeclared parses the client supplied content type and maps it to its
// canonical form. ok is false when the type is not one we accept.
func normalizeDeclared(value string) (string, bool, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", true, nil
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", false, fmt.Errorf("content type invalid: %w", err)
	}
	canonical, ok := allowedContentTypes[strings.ToLower(mediaType)]
	return canonical, ok, nil
}

// sniffContentType inspects the leading bytes of a file.
func sniffContentType(head []byte) (string, bool) {
	detected := mimetype.Detect(head)
	for candidate := detected; candidate != nil; candidate = candidate.Parent() {
		if canonical, ok := allowedContentTypes[candidate.String()]; ok {
			return canonical, true
		}
	}
	return detected.String(), false
}

// objectExt picks the stored extension from the sniffed content type. The
// client filename only decides between jpg and jpeg spellings.
func objectExt(name, contentType string) string {
	byType, ok := extByContentType[contentType]
	if !ok {
		return "png"
	}
	if byType == "jpg" && strings.EqualFold(path.Ext(strings.TrimSpace(name)), ".jpeg") {
		return "jpeg"
	}
	return byType
}

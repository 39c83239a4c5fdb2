// Package naming derives filenames for downloaded images from their URL
// and Content-Type.
package naming

import (
	"mime"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultExtension is used when the content type is missing or unknown.
	DefaultExtension = "jpg"
	// DefaultStem is the base name of synthesized filenames.
	DefaultStem = "image"
	// MaxNameLength is the longest filename in bytes most filesystems accept.
	MaxNameLength = 255

	maxExtLength = 16
)

var extensionsByType = map[string]string{
	"image/jpeg":               "jpg",
	"image/jpg":                "jpg",
	"image/pjpeg":              "jpg",
	"image/png":                "png",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/bmp":                "bmp",
	"image/x-ms-bmp":           "bmp",
	"image/svg+xml":            "svg",
	"image/tiff":               "tiff",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
	"image/avif":               "avif",
	"image/heic":               "heic",
	"image/heif":               "heif",
}

// Resolve returns the filename to save a download from rawURL under.
// The last path segment is used when it carries an extension; otherwise
// the name is synthesized as image.<ext> from contentType.
func Resolve(rawURL, contentType string) string {
	if name, ok := FromURL(rawURL); ok {
		return name
	}
	return DefaultStem + "." + Extension(contentType)
}

// FromURL extracts a usable filename from the URL path. Query and fragment
// are ignored. The boolean is false when the path ends in a directory, has
// no usable extension, or the segment is unsafe to use as a filename.
// Overlong stems are shortened to fit MaxNameLength.
func FromURL(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	p := parsed.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return "", false
	}

	name := path.Base(p)
	if !isSafe(name) {
		return "", false
	}

	stem, ext := SplitExt(name)
	if stem == "" || len(ext) < 2 || len(ext) > maxExtLength {
		return "", false
	}
	return Fit(stem, "", ext), true
}

// Fit joins stem, suffix and ext, cutting runes off the end of stem until
// the result is at most MaxNameLength bytes. It returns "" when suffix and
// ext alone leave no room for the stem.
func Fit(stem, suffix, ext string) string {
	room := MaxNameLength - len(suffix) - len(ext)
	if room < 1 {
		return ""
	}
	for len(stem) > room {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	if stem == "" {
		return ""
	}
	return stem + suffix + ext
}

// Extension maps a Content-Type header value to a file extension without
// the leading dot.
func Extension(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	} else if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	if ext, ok := extensionsByType[mediaType]; ok {
		return ext
	}

	// Only trust the platform table for image types; text/html would
	// otherwise produce .htm.
	if strings.HasPrefix(mediaType, "image/") {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
	}

	return DefaultExtension
}

// SplitExt splits name into stem and extension. The extension keeps its
// leading dot. A name starting with a dot and containing no other dot
// has no extension.
func SplitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}

func isSafe(name string) bool {
	if name == "" || name == "." || name == ".." || name == "/" {
		return false
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

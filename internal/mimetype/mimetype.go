// Package mimetype classifies file paths into MIME types by extension.
// It exists so the store can decide whether a drop is an image without
// reading file content; unknown extensions fall back to octet-stream.
package mimetype

import (
	"path/filepath"
	"strings"
)

const fallback = "application/octet-stream"

var byExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".ts":   "application/typescript",
	".xml":  "application/xml",
	".zip":  "application/zip",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// ByPath returns the MIME type for a file path based on its extension.
func ByPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := byExtension[ext]; ok {
		return mime
	}
	return fallback
}

// IsImage reports whether mime denotes an image type.
func IsImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

package utils

import (
	"path/filepath"
	"strings"
)

// IsSupportedImage reports whether the file extension is one of the raster
// formats the pipeline and OCR helper accept.
func IsSupportedImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// IsPDF reports whether the file extension is .pdf (any case).
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// FileStem returns the base name without its extension.
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

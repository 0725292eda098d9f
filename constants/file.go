package constants

import "strings"

// FileCategory names a storage bucket for pipeline artifacts.
type FileCategory string

// Storage categories for submitted and generated documents.
const (
	CategoryUploads   FileCategory = "uploads"
	CategoryConverted FileCategory = "converted"
)

// AllowedExtensions holds the accepted source document extensions.
var AllowedExtensions = map[string]struct{}{
	"xml": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

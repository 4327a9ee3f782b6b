package file

import (
	"path/filepath"
	"strings"
)

// WithSuffix inserts suffix between the file stem and its extension.
// "dir/a.ipynb" with "_ko" becomes "dir/a_ko.ipynb".
func WithSuffix(path, suffix string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename+suffix)
	}

	return filepath.Join(dir, filename[:lastDot]+suffix+filename[lastDot:])
}

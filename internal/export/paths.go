package export

import (
	"path/filepath"
	"strings"

	"github.com/starford/kenaz-export/internal/format"
)

// DefaultMapFilename is the map output name when none is configured.
const DefaultMapFilename = "mindmap.html"

// OutputPath returns <outputFolder>/<subfolder>/<stem>.<ext> for inputPath.
// With an empty outputFolder the result is relative to the vault root.
func OutputPath(inputPath string, f format.Format, outputFolder string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "." + f.Extension
	return filepath.Join(outputFolder, f.Subfolder(), name)
}

// MapPath returns the single destination of a map export.
func MapPath(outputFolder, filename string) string {
	if filename == "" {
		filename = DefaultMapFilename
	}
	return filepath.Join(outputFolder, filename)
}

// absolute anchors a relative path at root.
func absolute(p, root string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

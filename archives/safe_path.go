package archives

import (
	"path"
	"path/filepath"
	"strings"
)

// safeJoin resolves an archive entry name inside destDir. Entry names are slash separated
// regardless of the platform the archive was made on. Names that are absolute, carry a volume,
// or climb out of destDir are rejected.
func safeJoin(destDir string, entryName string) (string, bool) {
	name := strings.ReplaceAll(entryName, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") || strings.ContainsRune(name, 0) {
		return "", false
	}
	if filepath.VolumeName(filepath.FromSlash(name)) != "" || (len(name) >= 2 && name[1] == ':') {
		return "", false
	}

	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	if cleaned == "." {
		return destDir, true
	}

	target := filepath.Join(destDir, filepath.FromSlash(cleaned))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

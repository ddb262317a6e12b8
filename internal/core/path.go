package core

import (
	"path/filepath"
	"strings"
)

// DirName returns the last segment of a slash or OS separated directory path,
// ignoring trailing separators.
func DirName(dir string) string {
	dir = strings.TrimRight(filepath.ToSlash(dir), "/")
	if dir == "" {
		return ""
	}
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		return dir[i+1:]
	}
	return dir
}

func HasExtension(name, ext string) bool {
	return ext != "" && strings.HasSuffix(name, ext)
}

// AssetName builds a content-hashed output name such as assets/client-1a2b3c4d.js.
func AssetName(inputPath string, content []byte) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return "assets/" + stem + "-" + HashContent(content) + ext
}

// ServerOutputName maps an input such as src/index.ts to index.js.
func ServerOutputName(inputPath, scriptExt string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + scriptExt
}

// ManifestKey is the manifest key for an input: its root-relative slash path.
func ManifestKey(root, inputPath string) string {
	abs := inputPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.ToSlash(inputPath)
	}
	return filepath.ToSlash(rel)
}

package core

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ManifestRelPath is where the client bundler writes its manifest, relative to
// the client output directory.
const ManifestRelPath = ".vite/manifest.json"

type ManifestChunk struct {
	File           string   `json:"file"`
	Name           string   `json:"name,omitempty"`
	Src            string   `json:"src,omitempty"`
	IsEntry        bool     `json:"isEntry,omitempty"`
	IsDynamicEntry bool     `json:"isDynamicEntry,omitempty"`
	Imports        []string `json:"imports,omitempty"`
	DynamicImports []string `json:"dynamicImports,omitempty"`
	CSS            []string `json:"css,omitempty"`
	Assets         []string `json:"assets,omitempty"`
}

type ManifestEntry struct {
	Key   string
	Chunk ManifestChunk
}

// ManifestEntries lists the manifest's chunks in document order.
func ManifestEntries(content string) ([]ManifestEntry, error) {
	if !gjson.Valid(content) {
		return nil, fmt.Errorf("manifest is not valid JSON")
	}

	root := gjson.Parse(content)
	if !root.IsObject() {
		return nil, fmt.Errorf("manifest must be a JSON object")
	}

	var entries []ManifestEntry
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		var chunk ManifestChunk
		if err := json.Unmarshal([]byte(value.Raw), &chunk); err != nil {
			parseErr = fmt.Errorf("failed to parse manifest entry %q: %w", key.String(), err)
			return false
		}
		entries = append(entries, ManifestEntry{Key: key.String(), Chunk: chunk})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return entries, nil
}

func EntryChunks(entries []ManifestEntry) []ManifestEntry {
	result := make([]ManifestEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Chunk.IsEntry {
			result = append(result, entry)
		}
	}
	return result
}

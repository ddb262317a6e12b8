package core

import "strings"

// PlaceholderName is emitted by the server compiler wherever rendering code
// needs the client manifest. It must stay byte-identical to the emitter's.
const PlaceholderName = "__VITE_MANIFEST_CONTENT__"

// Placeholder is the quoted string literal actually replaced in compiled code.
const Placeholder = `"` + PlaceholderName + `"`

// ManifestProperty is the key under which the inlined manifest is exposed.
const ManifestProperty = "__manifest__"

// BuildReplacement wraps raw manifest JSON so that it has the shape of a
// dynamically imported module: { "__manifest__": { default: <manifest> } }.
func BuildReplacement(manifestContent string) string {
	return `{ "` + ManifestProperty + `": { default: ` + manifestContent + ` } }`
}

func HasPlaceholderName(code string) bool {
	return strings.Contains(code, PlaceholderName)
}

func HasPlaceholder(code string) bool {
	return strings.Contains(code, Placeholder)
}

// ReplacePlaceholder substitutes every quoted placeholder in code and reports
// how many were replaced.
func ReplacePlaceholder(code, replacement string) (string, int) {
	count := strings.Count(code, Placeholder)
	if count == 0 {
		return code, 0
	}
	return strings.ReplaceAll(code, Placeholder, replacement), count
}

package core

import (
	"fmt"
	"hash/fnv"
)

// HashContent returns a short stable fingerprint used for asset names and to
// identify manifest snapshots in logs.
func HashContent(content []byte) string {
	h := fnv.New32a()
	h.Write(content)
	return fmt.Sprintf("%08x", h.Sum32())
}

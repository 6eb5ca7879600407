// Package fileid derives deterministic identifiers for source documents and their chunks.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

const docPrefix = "doc:"

// namespace scopes chunk UUIDs so they never collide with other v5 IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kotae/chunk"))

// DocumentID returns a stable ID for a source path. Same path always yields the same ID.
func DocumentID(sourcePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(sourcePath)))
	return docPrefix + hex.EncodeToString(hash[:])
}

// ChunkID returns a name-based UUID for the chunk at index within sourcePath.
// The result is a valid point ID for vector backends that require UUIDs.
func ChunkID(sourcePath string, index int) string {
	name := filepath.Clean(sourcePath) + "#" + strconv.Itoa(index)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

package datastore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultRoot is where hash stores live unless configured otherwise.
const DefaultRoot = "data/memo"

// Digest computes the content address for a computation: lowercase hex
// SHA-256 over the two-element JSON array of the owning app's name and the
// canonical parameter encoding. The frame is part of the on-disk
// compatibility contract; changing it orphans every existing memo
// directory. The store's own location is deliberately outside the frame.
func Digest(app string, canonical []byte) string {
	name, _ := json.Marshal(app)
	frame := make([]byte, 0, len(name)+len(canonical)+3)
	frame = append(frame, '[')
	frame = append(frame, name...)
	frame = append(frame, ',')
	frame = append(frame, canonical...)
	frame = append(frame, ']')
	sum := sha256.Sum256(frame)
	return hex.EncodeToString(sum[:])
}

// Hash is a content-addressed store: its directory is derived from a digest
// and never collides with a value-different parameter tree except with
// negligible probability.
type Hash struct {
	root   string
	digest string
}

// NewHash returns a store for the given digest under root. An empty root
// falls back to DefaultRoot.
func NewHash(root, digest string) *Hash {
	if root == "" {
		root = DefaultRoot
	}
	return &Hash{root: root, digest: digest}
}

// Digest returns the store's content address.
func (h *Hash) Digest() string {
	return h.digest
}

// Dir implements Store. The digest splits into a two-character shard
// directory plus remainder, keeping any single directory's entry count
// manageable.
func (h *Hash) Dir() (string, error) {
	if len(h.digest) < 3 {
		return "", fmt.Errorf("datastore: digest %q too short", h.digest)
	}
	return filepath.Join(h.root, h.digest[:2], h.digest[2:]), nil
}

// Path implements Store.
func (h *Hash) Path(rel ...string) (string, error) {
	dir, err := h.Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("datastore: creating %s: %w", dir, err)
	}
	return filepath.Join(append([]string{dir}, rel...)...), nil
}

// File implements Store.
func (h *Hash) File(rel ...string) (string, error) {
	dir, err := h.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, rel...)...), nil
}

// Exists implements Store.
func (h *Hash) Exists(rel string) bool {
	return statFile(h, rel)
}

// String implements fmt.Stringer.
func (h *Hash) String() string {
	return "hash:" + h.digest
}

// Package datastore implements the filesystem directories that hold a
// computation's parameters, results, and completion marker. Three handle
// variants exist: an explicit directory, a sub-store sharing its owner's
// directory, and a content-addressed directory derived from a parameter
// digest.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store resolves to a directory on first access and hands out paths inside
// it. Resolution is lazy and cached for the handle's lifetime; the
// directory itself is only created when a path is requested for writing.
type Store interface {
	// Dir returns the resolved directory without creating it.
	Dir() (string, error)
	// Path joins the given elements under the resolved directory and
	// creates the directory (and any parents) so the caller can write.
	Path(rel ...string) (string, error)
	// File joins the given elements under the resolved directory without
	// creating anything. Use it to probe or read.
	File(rel ...string) (string, error)
	// Exists reports whether the named file exists inside the store.
	Exists(rel string) bool
	fmt.Stringer
}

// Directory is an explicit-path store.
type Directory struct {
	path string
}

// NewDirectory returns a store rooted at an explicit path.
func NewDirectory(path string) *Directory {
	return &Directory{path: path}
}

// Dir implements Store.
func (d *Directory) Dir() (string, error) {
	if d.path == "" {
		return "", fmt.Errorf("datastore: directory path is empty")
	}
	return d.path, nil
}

// Path implements Store.
func (d *Directory) Path(rel ...string) (string, error) {
	dir, err := d.Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("datastore: creating %s: %w", dir, err)
	}
	return filepath.Join(append([]string{dir}, rel...)...), nil
}

// File implements Store.
func (d *Directory) File(rel ...string) (string, error) {
	dir, err := d.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, rel...)...), nil
}

// Exists implements Store.
func (d *Directory) Exists(rel string) bool {
	return statFile(d, rel)
}

// String implements fmt.Stringer.
func (d *Directory) String() string {
	return "dir:" + d.path
}

// Sub is a store that lives inside its owner's directory. Files are
// prefixed "<name>-" rather than placed in a subdirectory, so arbitrarily
// deep nesting costs no extra directories.
type Sub struct {
	owner Store
	name  string
	sep   string
}

// NewSub returns a store nested under the owner with the given name.
func NewSub(owner Store, name string) *Sub {
	return &Sub{owner: owner, name: name, sep: "-"}
}

// Dir implements Store: a sub-store shares its owner's directory.
func (s *Sub) Dir() (string, error) {
	return s.owner.Dir()
}

// Path implements Store.
func (s *Sub) Path(rel ...string) (string, error) {
	return s.owner.Path(s.prefix(rel)...)
}

// File implements Store.
func (s *Sub) File(rel ...string) (string, error) {
	return s.owner.File(s.prefix(rel)...)
}

// Exists implements Store.
func (s *Sub) Exists(rel string) bool {
	return s.owner.Exists(s.name + s.sep + rel)
}

// String implements fmt.Stringer.
func (s *Sub) String() string {
	return fmt.Sprintf("sub:%s/%s", s.owner, s.name)
}

func (s *Sub) prefix(rel []string) []string {
	if len(rel) == 0 {
		return []string{s.name}
	}
	first := s.name + s.sep + rel[0]
	return append([]string{first}, rel[1:]...)
}

func statFile(s Store, rel string) bool {
	path, err := s.File(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

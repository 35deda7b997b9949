// Package catalog manages post types and their example texts inside a document.
package catalog

import (
	"errors"
	"slices"
	"strings"

	"github.com/m3rciful/postbot/internal/store"
)

// MaxNameBytes bounds a type name so it fits inside inline button payloads.
const MaxNameBytes = 40

var (
	ErrNotFound         = errors.New("post type not found")
	ErrDuplicateName    = errors.New("post type already exists")
	ErrDuplicateExample = errors.New("example already exists")
	ErrIndexOutOfRange  = errors.New("example index out of range")
	ErrEmptyExample     = errors.New("example is empty")
	ErrInvalidName      = errors.New("invalid post type name")
)

// Catalog operates on the post types of a document. It does not persist anything.
type Catalog struct {
	types *store.PostTypes
}

// New wraps types.
func New(types *store.PostTypes) Catalog {
	return Catalog{types: types}
}

// NormalizeName trims and lower-cases a user-supplied type name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validName(name string) error {
	if name == "" || len(name) > MaxNameBytes {
		return ErrInvalidName
	}
	return nil
}

// CreateType appends an empty post type.
func (c Catalog) CreateType(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if _, ok := c.types.Get(name); ok {
		return ErrDuplicateName
	}
	c.types.Set(name, &store.PostType{Examples: []string{}})
	return nil
}

// ListTypes returns names in insertion order.
func (c Catalog) ListTypes() []string {
	return c.types.Names()
}

// Has reports whether name exists.
func (c Catalog) Has(name string) bool {
	_, ok := c.types.Get(name)
	return ok
}

// AddExample appends text to the type's examples.
func (c Catalog) AddExample(name, text string) error {
	pt, ok := c.types.Get(name)
	if !ok {
		return ErrNotFound
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyExample
	}
	if slices.Contains(pt.Examples, text) {
		return ErrDuplicateExample
	}
	pt.Examples = append(pt.Examples, text)
	return nil
}

// RenameType moves examples and position from old to new.
func (c Catalog) RenameType(old, new string) error {
	if !c.Has(old) {
		return ErrNotFound
	}
	if err := validName(new); err != nil {
		return err
	}
	if old != new && c.Has(new) {
		return ErrDuplicateName
	}
	c.types.Rename(old, new)
	return nil
}

// DeleteType removes name with all its examples.
func (c Catalog) DeleteType(name string) error {
	if !c.types.Delete(name) {
		return ErrNotFound
	}
	return nil
}

// Examples returns a copy of the type's examples.
func (c Catalog) Examples(name string) ([]string, error) {
	pt, ok := c.types.Get(name)
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(pt.Examples), nil
}

func (c Catalog) lookup(name string, i int) (*store.PostType, error) {
	pt, ok := c.types.Get(name)
	if !ok {
		return nil, ErrNotFound
	}
	if i < 0 || i >= len(pt.Examples) {
		return nil, ErrIndexOutOfRange
	}
	return pt, nil
}

// Example returns the i-th example of name.
func (c Catalog) Example(name string, i int) (string, error) {
	pt, err := c.lookup(name, i)
	if err != nil {
		return "", err
	}
	return pt.Examples[i], nil
}

// EditExample replaces the i-th example.
func (c Catalog) EditExample(name string, i int, text string) error {
	pt, err := c.lookup(name, i)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyExample
	}
	if j := slices.Index(pt.Examples, text); j >= 0 && j != i {
		return ErrDuplicateExample
	}
	pt.Examples[i] = text
	return nil
}

// DeleteExample removes the i-th example; later indices shift down.
func (c Catalog) DeleteExample(name string, i int) error {
	pt, err := c.lookup(name, i)
	if err != nil {
		return err
	}
	pt.Examples = slices.Delete(pt.Examples, i, i+1)
	return nil
}

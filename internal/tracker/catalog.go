package tracker

import (
	"sort"
	"strings"
)

// Catalog maps published filenames to their owning username. Callers
// serialize access.
type Catalog struct {
	owners map[string]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{owners: make(map[string]string)}
}

// Publish records owner as the publisher of filename. Publishing an
// already-published name overwrites the owner: last publisher wins.
func (c *Catalog) Publish(filename, owner string) error {
	if filename == "" {
		return ErrEmptyFilename
	}
	c.owners[filename] = owner
	return nil
}

// Unpublish removes filename if requester is its recorded owner.
func (c *Catalog) Unpublish(filename, requester string) error {
	owner, ok := c.owners[filename]
	if !ok {
		return ErrNotFound
	}
	if owner != requester {
		return ErrNotOwner
	}
	delete(c.owners, filename)
	return nil
}

// ListOwnedBy returns the filenames published by username, sorted.
func (c *Catalog) ListOwnedBy(username string) []string {
	var files []string
	for filename, owner := range c.owners {
		if owner == username {
			files = append(files, filename)
		}
	}
	sort.Strings(files)
	return files
}

// Search returns the filenames containing substring that are not owned
// by excludingOwner. A peer never discovers its own files this way.
func (c *Catalog) Search(substring, excludingOwner string) []string {
	var files []string
	for filename, owner := range c.owners {
		if owner != excludingOwner && strings.Contains(filename, substring) {
			files = append(files, filename)
		}
	}
	sort.Strings(files)
	return files
}

// ResolveOwner returns the username that published filename.
func (c *Catalog) ResolveOwner(filename string) (string, bool) {
	owner, ok := c.owners[filename]
	return owner, ok
}

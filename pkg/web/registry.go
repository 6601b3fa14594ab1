// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package web

import (
	"fmt"
	"sync"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/project"
	"mpdelta/pkg/timeline/serialize"
)

// Registry holds the set of project roots currently open for live editing.
// editor.Editor mutates a root in place; Registry is what lets an HTTP
// handler look one up by key between requests instead of re-loading it from
// disk on every command. Grounded on the teacher's monitor.Manager, which
// plays the same role for live *monitor.Monitor instances.
type Registry struct {
	store *serialize.Store
	gen   id.Generator

	mu    sync.Mutex
	proj  *project.Project
	roots map[string]id.ID // key -> root class id, for Get after Open/Create
}

// NewRegistry returns a Registry backed by store. Every root it opens or
// creates lives in a single shared project.Project, since nothing in this
// codebase's entity model ties an id to more than one project instance.
func NewRegistry(store *serialize.Store, gen id.Generator) *Registry {
	return &Registry{
		store: store,
		gen:   gen,
		proj:  project.NewProject(gen),
		roots: make(map[string]id.ID),
	}
}

// List returns every project key known to the backing store.
func (r *Registry) List() ([]string, error) {
	return r.store.Keys()
}

// Get returns the already-open root for key, if any.
func (r *Registry) Get(key string) (*project.RootComponentClass, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	classID, ok := r.roots[key]
	if !ok {
		return nil, false
	}
	return r.proj.Root(classID)
}

// Open loads key from the backing store into the live registry, or returns
// the already-open root if a previous Open/Create call already holds one.
func (r *Registry) Open(key string) (*project.RootComponentClass, error) {
	if root, ok := r.Get(key); ok {
		return root, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	root, err := r.store.LoadRoot(key, r.proj, r.gen)
	if err != nil {
		return nil, err
	}
	r.roots[key] = root.ID()
	return root, nil
}

// Create starts a brand new, empty project of the given length under key,
// failing if key is already open or already exists in the backing store.
func (r *Registry) Create(key string, length fraction.Fraction) (*project.RootComponentClass, error) {
	if _, ok := r.Get(key); ok {
		return nil, fmt.Errorf("web: project %q is already open", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	root := r.proj.NewRootComponentClass(length)
	if err := r.store.SaveRoot(key, root); err != nil {
		r.proj.RemoveRoot(root.ID())
		return nil, err
	}
	r.roots[key] = root.ID()
	return root, nil
}

// Save persists key's current in-memory state to the backing store.
func (r *Registry) Save(key string) error {
	root, ok := r.Get(key)
	if !ok {
		return fmt.Errorf("web: project %q is not open", key)
	}
	return r.store.SaveRoot(key, root)
}

// Close drops key from the live registry without touching the backing
// store. A later Open reloads it from whatever was last Saved.
func (r *Registry) Close(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roots, key)
}

// Delete removes key from both the live registry and the backing store.
func (r *Registry) Delete(key string) error {
	r.mu.Lock()
	if classID, ok := r.roots[key]; ok {
		r.proj.RemoveRoot(classID)
		delete(r.roots, key)
	}
	r.mu.Unlock()
	return r.store.DeleteRoot(key)
}

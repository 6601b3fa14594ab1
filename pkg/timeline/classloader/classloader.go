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

// Package classloader resolves a component class identifier to its
// processor. Leaf component packages (components/mediafile, components/text,
// components/shape) register a factory for their class from an init()
// function, the same global-registry-plus-Register-call pattern the
// teacher's addon packages use to hook into the host application.
package classloader

import (
	"fmt"
	"sync"

	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/processor"
)

// Factory builds a fresh Processor instance for a class identifier's fixed
// configuration. Most processors are stateless and ignore the namespace
// disambiguator; Factory exists so a class can vary its behavior by the
// ClassIdentifier.Inner words (e.g. a format revision).
type Factory func(class id.ClassIdentifier) (processor.Processor, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

func key(c id.ClassIdentifier) string {
	return c.Namespace + "\x00" + c.Name
}

// Register installs factory for every class matching namespace/name,
// regardless of the Inner disambiguator. Called from an addon package's
// init(); panics on a duplicate registration, since that can only be a
// build-time wiring mistake.
func Register(namespace, name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	k := namespace + "\x00" + name
	if _, exists := factories[k]; exists {
		panic(fmt.Sprintf("classloader: duplicate registration for %s:%s", namespace, name))
	}
	factories[k] = factory
}

// ErrClassNotFound is returned by Resolve when no factory is registered for
// the requested class.
type ErrClassNotFound struct {
	Class id.ClassIdentifier
}

func (e *ErrClassNotFound) Error() string {
	return fmt.Sprintf("classloader: no factory registered for class %s", e.Class)
}

// Loader resolves class identifiers against the process-wide factory
// registry, satisfying render.Resolver.
type Loader struct{}

// Resolve builds a fresh Processor for class.
func (Loader) Resolve(class id.ClassIdentifier) (processor.Processor, error) {
	mu.RLock()
	factory, ok := factories[key(class)]
	mu.RUnlock()
	if !ok {
		return nil, &ErrClassNotFound{Class: class}
	}
	return factory(class)
}

// Registered reports whether any factory is registered for namespace/name,
// for diagnostics and tests.
func Registered(namespace, name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[namespace+"\x00"+name]
	return ok
}

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

package serialize

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/project"
)

var projectsBucket = []byte("projects")

// Store persists Documents in a single bbolt file, one project per
// caller-chosen key string.
// Mirrors pkg/log's bolt-backed log database: one bucket, JSON values.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (creating if necessary) a bbolt database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("serialize: could not open database: %w: %v", err, path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(projectsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("serialize: could not create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRoot serializes root and stores it under key.
func (s *Store) SaveRoot(key string, root *project.RootComponentClass) error {
	doc, err := Save(root)
	if err != nil {
		return fmt.Errorf("serialize: save %q: %w", key, err)
	}
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serialize: marshal %q: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(projectsBucket).Put([]byte(key), value)
	})
}

// ErrProjectNotFound is returned by LoadRoot when key has no stored value.
type ErrProjectNotFound struct{ Key string }

func (e *ErrProjectNotFound) Error() string {
	return fmt.Sprintf("serialize: no project stored under %q", e.Key)
}

// LoadRoot loads and deserializes the project stored under key into p,
// reissuing ids through gen.
func (s *Store) LoadRoot(key string, p *project.Project, gen id.Generator) (*project.RootComponentClass, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(projectsBucket).Get([]byte(key))
		if v == nil {
			return &ErrProjectNotFound{Key: key}
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("serialize: unmarshal %q: %w", key, err)
	}
	return Load(p, gen, &doc)
}

// Keys lists every stored project key.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(projectsBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// DeleteRoot removes the project stored under key, if any.
func (s *Store) DeleteRoot(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(projectsBucket).Delete([]byte(key))
	})
}

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

// Package web is the HTTP surface over the timeline editing core: project
// management (list/create/open/save/delete), structural/parameter edit
// commands, a live event stream, and system status. Every handler follows
// the teacher's pkg/web idiom: a standalone function closing over its
// dependencies and returning an http.Handler, method-checked first, JSON
// via encoding/json.
package web

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"mpdelta/pkg/system"
	"mpdelta/pkg/timeline/editor"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/web/auth"
)

// Status returns system status.
func Status(sys *system.System) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sys.Status()); err != nil {
			http.Error(w, "could not encode json", http.StatusInternalServerError)
		}
	})
}

// ProjectList returns every known project key in json format.
func ProjectList(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		keys, err := reg.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(keys); err != nil {
			http.Error(w, "could not encode json", http.StatusInternalServerError)
		}
	})
}

type createProjectRequest struct {
	Key    string      `json:"key"`
	Length fractionDoc `json:"length"`
}

// ProjectCreate handler creates a new, empty project.
func ProjectCreate(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		var req createProjectRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Key == "" {
			http.Error(w, "key missing", http.StatusBadRequest)
			return
		}
		length, err := req.Length.value()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := reg.Create(req.Key, length); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	})
}

// ProjectOpen handler loads a project into the live registry, creating it
// from the backing store if it isn't already open.
func ProjectOpen(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		key := r.URL.Query().Get("key")
		if key == "" {
			http.Error(w, "key missing", http.StatusBadRequest)
			return
		}
		root, err := reg.Open(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(struct {
			RootID string `json:"rootId"`
		}{RootID: root.ID().String()}); err != nil {
			http.Error(w, "could not encode json", http.StatusInternalServerError)
		}
	})
}

// ProjectSave handler persists a project's current in-memory state.
func ProjectSave(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		key := r.URL.Query().Get("key")
		if key == "" {
			http.Error(w, "key missing", http.StatusBadRequest)
			return
		}
		if err := reg.Save(key); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// ProjectClose handler drops a project from the live registry without
// deleting it from the backing store.
func ProjectClose(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		key := r.URL.Query().Get("key")
		if key == "" {
			http.Error(w, "key missing", http.StatusBadRequest)
			return
		}
		reg.Close(key)
	})
}

// ProjectDelete handler removes a project from the live registry and the
// backing store.
func ProjectDelete(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		key := r.URL.Query().Get("key")
		if key == "" {
			http.Error(w, "key missing", http.StatusBadRequest)
			return
		}
		if err := reg.Delete(key); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// EditRoot handler applies a single RootCommand to the project named by the
// "key" query parameter.
func EditRoot(reg *Registry, e *editor.Editor, gen id.Generator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		key := r.URL.Query().Get("key")
		root, ok := reg.Get(key)
		if !ok {
			http.Error(w, fmt.Sprintf("project %q is not open", key), http.StatusNotFound)
			return
		}

		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		var doc rootCommandDoc
		if err := json.Unmarshal(body, &doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cmd, err := doc.build(gen)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := e.Edit(r.Context(), root, cmd); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	})
}

// EditInstance handler applies a single InstanceCommand to one instance of
// the project named by the "key" query parameter.
func EditInstance(reg *Registry, e *editor.Editor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		key := r.URL.Query().Get("key")
		root, ok := reg.Get(key)
		if !ok {
			http.Error(w, fmt.Sprintf("project %q is not open", key), http.StatusNotFound)
			return
		}
		instID, err := id.ParseID(r.URL.Query().Get("instance"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		instance, ok := root.Instance(instID)
		if !ok {
			http.Error(w, "instance not found", http.StatusNotFound)
			return
		}

		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		var doc instanceCommandDoc
		if err := json.Unmarshal(body, &doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cmd, err := doc.build()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := e.EditInstance(r.Context(), root, instance, cmd); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	})
}

// UsersList returns a censored user list (no password hashes, no tokens).
func UsersList(a *auth.Authenticator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(a.UsersList()); err != nil {
			http.Error(w, "could not encode json", http.StatusInternalServerError)
		}
	})
}

// UserSet creates or updates a user.
func UserSet(a *auth.Authenticator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		var account auth.Account
		if err := json.Unmarshal(body, &account); err != nil {
			http.Error(w, "unmarshal error: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := a.UserSet(account); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	})
}

// UserDelete deletes a user by id.
func UserDelete(a *auth.Authenticator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		userID := r.URL.Query().Get("id")
		if userID == "" {
			http.Error(w, "id missing", http.StatusBadRequest)
			return
		}
		if err := a.UserDelete(userID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

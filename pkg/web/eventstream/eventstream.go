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

// Package eventstream fans out successful edit commands to connected UI
// clients over a websocket, one JSON frame per event, implementing
// pkg/timeline/editor.EditEventListener (§6 "Edit event stream"). Grounded
// on the teacher's own gorilla/websocket dependency; the teacher never
// wires it into a handler of its own, so the connection/broadcast loop
// below follows the library's standard hub pattern rather than a specific
// teacher file.
package eventstream

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"mpdelta/pkg/log"
	"mpdelta/pkg/timeline/editor"
	"mpdelta/pkg/timeline/project"
)

// Frame is the JSON envelope pushed to every connected client. Root is
// always set; Instance is set only for "instance" frames. Exactly one of
// RootEvent/InstanceEvent is populated, selected by Kind, mirroring the
// RootComponentEditEvent/InstanceEditEvent split in pkg/timeline/editor.
type Frame struct {
	Kind string `json:"kind"` // "root" or "instance"

	Root     *idHex `json:"root"`
	Instance *idHex `json:"instance,omitempty"`

	RootEvent     *editor.RootComponentEditEvent `json:"rootEvent,omitempty"`
	InstanceEvent *editor.InstanceEditEvent      `json:"instanceEvent,omitempty"`
}

// idHex renders an id.ID as its usual hex string inside a Frame, so the
// wire format never depends on id.ID's own (unexported-field) encoding.
type idHex string

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub broadcasts edit events to every currently-connected websocket client.
// Implements editor.EditEventListener; register it on an *editor.Editor via
// AddEditEventListener to start receiving events.
type Hub struct {
	log *log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Frame
}

// New returns an empty Hub.
func New(logger *log.Logger) *Hub {
	return &Hub{log: logger, clients: map[*client]struct{}{}}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection as a broadcast target until it disconnects. The connection is
// write-only from the server's perspective; any client-sent frame is
// discarded, only used to detect disconnection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			h.log.Error().Src("eventstream").Msgf("upgrade: %v", err)
		}
		return
	}

	c := &client{conn: conn, send: make(chan Frame, 32)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.disconnect(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for frame := range c.send {
		if err := c.conn.WriteJSON(frame); err != nil {
			h.disconnect(c)
			return
		}
	}
}

func (h *Hub) disconnect(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

func (h *Hub) broadcast(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			// Slow client: drop the frame rather than block the editor's
			// mutation path on a stalled websocket write.
		}
	}
}

// OnEdit implements editor.EditEventListener for root-level commands.
func (h *Hub) OnEdit(root *project.RootComponentClass, event editor.RootComponentEditEvent) {
	h.broadcast(Frame{Kind: "root", Root: ref(root.ID()), RootEvent: &event})
}

// OnEditInstance implements editor.EditEventListener for instance-level
// commands.
func (h *Hub) OnEditInstance(root *project.RootComponentClass, instance *project.ComponentInstance, event editor.InstanceEditEvent) {
	h.broadcast(Frame{
		Kind:          "instance",
		Root:          ref(root.ID()),
		Instance:      ref(instance.ID()),
		InstanceEvent: &event,
	})
}

func ref(s fmt.Stringer) *idHex {
	h := idHex(s.String())
	return &h
}

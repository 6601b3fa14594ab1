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

// Package differential recomputes every marker pin's cached TimelineTime
// from a set of marker links and two pre-assigned boundary pins. It is the
// propagation step run after every structural edit, per invariant 2.
package differential

import (
	"errors"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/project"
)

// ErrInvalidLinkGraph is returned when the live link set cannot be solved:
// either a link is found with both endpoints already known at times that
// differ by something other than its length, or links remain after every reachable pin has been assigned
// (disconnected from begin/end).
var ErrInvalidLinkGraph = errors.New("differential: invalid link graph")

// Solve assigns a cached TimelineTime to every pin reachable from begin/end
// through links, treating each link as bidirectional: if one endpoint's time
// is known, the other is len away. begin and end must already carry the
// cached TimelineTime the solve propagates from (for a root class these are
// its own left/right pins; for a nested class they are the boundary times
// handed down by the parent's render pass).
//
// Mirrors the source algorithm's link-selection order exactly: each pass
// scans links in slice order and processes the first with exactly one
// endpoint known. A link found with both endpoints already known is consumed
// when their cached times differ by exactly its length, and otherwise fails
// immediately with ErrInvalidLinkGraph, without first trying the other links.
func Solve(links []*project.MarkerLink, begin, end *project.MarkerPin) error {
	live := make([]*project.MarkerLink, len(links))
	copy(live, links)

	known := map[id.ID]*project.MarkerPin{
		begin.ID(): begin,
		end.ID():   end,
	}

	for {
		i, from, to, length, ok, err := scan(live, known)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		live = append(live[:i], live[i+1:]...)
		to.SetCachedTimelineTime(from.CachedTimelineTime().Add(length))
		known[to.ID()] = to
	}

	if len(live) != 0 {
		return ErrInvalidLinkGraph
	}
	return nil
}

// scan finds the first link in live with exactly one endpoint in known. It
// returns that link's index and the (from, to, signed length) triple to
// apply next. A both-endpoints-known link whose endpoint times already differ
// by its length is returned the same way (re-applying it changes nothing); if
// one whose times disagree is encountered before any solvable one, it returns
// ErrInvalidLinkGraph immediately.
func scan(live []*project.MarkerLink, known map[id.ID]*project.MarkerPin) (idx int, from, to *project.MarkerPin, length fraction.Fraction, ok bool, err error) {
	for i, link := range live {
		_, fromKnown := known[link.From.ID()]
		_, toKnown := known[link.To.ID()]
		switch {
		case fromKnown && toKnown:
			want := link.From.CachedTimelineTime().Value().Add(link.Len)
			if want.Cmp(link.To.CachedTimelineTime().Value()) != 0 {
				return 0, nil, nil, fraction.Zero, false, ErrInvalidLinkGraph
			}
			return i, link.From, link.To, link.Len, true, nil
		case fromKnown && !toKnown:
			return i, link.From, link.To, link.Len, true, nil
		case !fromKnown && toKnown:
			return i, link.To, link.From, link.Len.Neg(), true, nil
		default:
			// neither endpoint known yet; keep scanning
		}
	}
	return 0, nil, nil, fraction.Zero, false, nil
}

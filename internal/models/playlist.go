package models

import (
	"fmt"
	"sort"

	"github.com/desertthunder/gmx/internal/shared"
)

// PlaylistState tracks where a playlist is in its lifecycle.
type PlaylistState int

const (
	PlaylistRequested PlaylistState = iota // named, not yet created
	PlaylistCreated
	PlaylistPopulated
	PlaylistRenamed
	PlaylistDeleted // terminal
)

func (s PlaylistState) String() string {
	switch s {
	case PlaylistRequested:
		return "requested"
	case PlaylistCreated:
		return "created"
	case PlaylistPopulated:
		return "populated"
	case PlaylistRenamed:
		return "renamed"
	case PlaylistDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Playlist is a named set of track ids. Membership is unique and unordered.
type Playlist struct {
	id      string
	name    string
	state   PlaylistState
	members map[string]struct{}
}

// NewPlaylist builds a playlist that exists only as a requested name.
func NewPlaylist(name string) *Playlist {
	return &Playlist{name: name, members: make(map[string]struct{})}
}

// RemotePlaylist builds a playlist observed on the service.
func RemotePlaylist(id, name string, trackIDs ...string) *Playlist {
	p := NewPlaylist(name)
	p.id = id
	p.state = PlaylistCreated
	p.Add(trackIDs...)
	return p
}

func (p *Playlist) ID() string           { return p.id }
func (p *Playlist) Name() string         { return p.name }
func (p *Playlist) State() PlaylistState { return p.state }

// Created records the server-assigned id.
func (p *Playlist) Created(id string) error {
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if p.state != PlaylistRequested {
		return fmt.Errorf("%w: playlist %q already %s", shared.ErrInvalidInput, p.name, p.state)
	}
	p.id = id
	p.state = PlaylistCreated
	return nil
}

// Rename changes the name of a live playlist.
func (p *Playlist) Rename(name string) error {
	if err := p.live(); err != nil {
		return err
	}
	p.name = name
	p.state = PlaylistRenamed
	return nil
}

// Delete marks the playlist terminal. Its id is invalid afterwards.
func (p *Playlist) Delete() error {
	if err := p.live(); err != nil {
		return err
	}
	p.state = PlaylistDeleted
	return nil
}

// Add inserts ids not already present and returns how many were new.
func (p *Playlist) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := p.members[id]; ok {
			continue
		}
		p.members[id] = struct{}{}
		added++
	}
	if added > 0 && p.state == PlaylistCreated {
		p.state = PlaylistPopulated
	}
	return added
}

// Remove drops id and reports whether it was present.
func (p *Playlist) Remove(id string) bool {
	if _, ok := p.members[id]; !ok {
		return false
	}
	delete(p.members, id)
	return true
}

func (p *Playlist) Contains(id string) bool {
	_, ok := p.members[id]
	return ok
}

func (p *Playlist) Len() int { return len(p.members) }

// TrackIDs returns the members in sorted order.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, 0, len(p.members))
	for id := range p.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Playlist) live() error {
	switch p.state {
	case PlaylistRequested:
		return fmt.Errorf("%w: playlist %q was never created", shared.ErrInvalidInput, p.name)
	case PlaylistDeleted:
		return fmt.Errorf("%w: playlist %s", shared.ErrEntityVanished, p.id)
	}
	return nil
}

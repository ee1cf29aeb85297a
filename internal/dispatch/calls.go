package dispatch

import (
	"context"
	"encoding/json"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/taxonomy"
)

// PlaylistSummary is one entry of the playlist listing.
type PlaylistSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
}

type playlistPayload struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	SongIDs []string `json:"song_ids"`
}

func (d *Dispatcher) decode(r models.CallResult, op string, v any) error {
	if !r.OK() {
		return r.Failure()
	}
	if err := decodeNumbers(r.Payload(), v); err != nil {
		return models.WrapFailure(models.Transport, op, err)
	}
	return nil
}

// CreatePlaylist creates a playlist and returns it with its server-assigned id.
func (d *Dispatcher) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	var out playlistPayload
	if err := d.decode(d.Execute(ctx, CreatePlaylist{Name: name}), string(services.OpCreatePlaylist), &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, models.NewFailure(models.Transport, string(services.OpCreatePlaylist), "response carried no playlist id")
	}

	p := models.NewPlaylist(name)
	if err := p.Created(out.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// AddSongs adds ids to a playlist and returns the ids the service reports as newly added.
func (d *Dispatcher) AddSongs(ctx context.Context, playlistID string, songIDs ...string) ([]string, error) {
	var out struct {
		Added []string `json:"added"`
	}
	err := d.decode(d.Execute(ctx, AddSongs{PlaylistID: playlistID, SongIDs: songIDs}), string(services.OpAddSongs), &out)
	return out.Added, err
}

func (d *Dispatcher) RemoveSong(ctx context.Context, playlistID, songID string) error {
	return d.Execute(ctx, RemoveSong{PlaylistID: playlistID, SongID: songID}).Err()
}

func (d *Dispatcher) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	return d.Execute(ctx, RenamePlaylist{PlaylistID: playlistID, Name: name}).Err()
}

func (d *Dispatcher) DeletePlaylist(ctx context.Context, playlistID string) error {
	return d.Execute(ctx, DeletePlaylist{PlaylistID: playlistID}).Err()
}

// UploadTrack uploads src and returns {src.Name(): assigned id}.
func (d *Dispatcher) UploadTrack(ctx context.Context, src services.FileSource) (map[string]string, error) {
	var out map[string]string
	if err := d.decode(d.Execute(ctx, UploadTrack{File: src}), string(services.OpUploadTrack), &out); err != nil {
		return nil, err
	}
	if out[src.Name()] == "" {
		return nil, models.NewFailure(models.Transport, string(services.OpUploadTrack), "response has no id for %s", src.Name())
	}
	return out, nil
}

func (d *Dispatcher) DeleteTrack(ctx context.Context, songID string) error {
	return d.Execute(ctx, DeleteTrack{SongID: songID}).Err()
}

// ChangeMetadata submits rec. Success means the service accepted the call, not that every field changed.
func (d *Dispatcher) ChangeMetadata(ctx context.Context, rec models.TrackRecord) error {
	return d.Execute(ctx, ChangeMetadata{Record: rec}).Err()
}

// Search returns matching songs ranked against query.
func (d *Dispatcher) Search(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	var out struct {
		Songs []models.TrackRecord `json:"songs"`
	}
	if err := d.decode(d.Execute(ctx, Search{Query: query, MaxResults: maxResults}), string(services.OpSearch), &out); err != nil {
		return nil, err
	}
	for _, rec := range out.Songs {
		taxonomy.NormalizeRecord(rec)
	}
	return newSearchResult(query, out.Songs), nil
}

// StreamURL resolves a playable URL for songID.
func (d *Dispatcher) StreamURL(ctx context.Context, songID string) (string, error) {
	r := d.Execute(ctx, ResolveStreamURL{SongID: songID})
	if !r.OK() {
		return "", r.Failure()
	}

	var s string
	if err := json.Unmarshal(r.Payload(), &s); err == nil {
		return s, nil
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := d.decode(r, string(services.OpStreamURL), &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// ListLibrary returns every track record, with numbers normalized.
func (d *Dispatcher) ListLibrary(ctx context.Context) ([]models.TrackRecord, error) {
	var out []models.TrackRecord
	if err := d.decode(d.Execute(ctx, ListLibrary{}), string(services.OpListLibrary), &out); err != nil {
		return nil, err
	}
	for _, rec := range out {
		taxonomy.NormalizeRecord(rec)
	}
	return out, nil
}

func (d *Dispatcher) ListPlaylists(ctx context.Context) ([]PlaylistSummary, error) {
	var out []PlaylistSummary
	err := d.decode(d.Execute(ctx, ListPlaylists{}), string(services.OpListPlaylists), &out)
	return out, err
}

// PlaylistSongs fetches a playlist with its membership.
func (d *Dispatcher) PlaylistSongs(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var out playlistPayload
	if err := d.decode(d.Execute(ctx, ListPlaylistSongs{PlaylistID: playlistID}), string(services.OpListPlaylistSongs), &out); err != nil {
		return nil, err
	}
	return models.RemotePlaylist(out.ID, out.Name, out.SongIDs...), nil
}

// FindPlaylist resolves a playlist by exact name and loads its membership.
// A missing playlist is an EntityVanished failure.
func (d *Dispatcher) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	summaries, err := d.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		if s.Name == name {
			return d.PlaylistSongs(ctx, s.ID)
		}
	}
	return nil, models.NewFailure(models.EntityVanished, "find_playlist", "no playlist named %q", name)
}

// FetchTrack re-reads one track record from the library.
// A missing track is an EntityVanished failure.
func (d *Dispatcher) FetchTrack(ctx context.Context, id string) (models.TrackRecord, error) {
	library, err := d.ListLibrary(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range library {
		if rec.ID() == id {
			return rec, nil
		}
	}
	return nil, models.NewFailure(models.EntityVanished, "fetch_track", "no track with id %q", id)
}

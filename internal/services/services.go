// package services defines the collaborators the dispatcher needs: a call [Transport], a [SessionProvider] and
// a [FileSource] for uploads
package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// OpKind names one logical operation on the remote service.
type OpKind string

const (
	OpCreatePlaylist    OpKind = "create_playlist"
	OpAddSongs          OpKind = "add_songs"
	OpRemoveSong        OpKind = "remove_song"
	OpRenamePlaylist    OpKind = "rename_playlist"
	OpDeletePlaylist    OpKind = "delete_playlist"
	OpUploadTrack       OpKind = "upload_track"
	OpDeleteTrack       OpKind = "delete_track"
	OpChangeMetadata    OpKind = "change_metadata"
	OpSearch            OpKind = "search"
	OpStreamURL         OpKind = "stream_url"
	OpListLibrary       OpKind = "list_library"
	OpListPlaylists     OpKind = "list_playlists"
	OpListPlaylistSongs OpKind = "list_playlist_songs"
)

// Parameter keys shared by the dispatcher, the HTTP routes and the fake service.
const (
	ParamPlaylistID = "playlist_id"
	ParamSongID     = "song_id"
	ParamSongIDs    = "song_ids"
	ParamName       = "name"
	ParamQuery      = "q"
	ParamMaxResults = "max_results"
	ParamMetadata   = "metadata"
	ParamFile       = "file"
)

// Params carries the typed parameters of one call.
type Params struct {
	Values map[string]any
	File   FileSource // set for [OpUploadTrack] only
}

// RawResponse is what the transport observed, before any envelope interpretation.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsJSON reports whether the body parses as JSON.
func (r *RawResponse) IsJSON() bool {
	return json.Valid(r.Body)
}

// Transport issues one authenticated request per call.
//
// Implementations must be safe for concurrent use and must return an error only for failures below the HTTP
// layer (network, request construction). Any response the service produced, whatever its status, is returned
// as a [RawResponse].
type Transport interface {
	Send(ctx context.Context, kind OpKind, params Params) (*RawResponse, error)
}

// SessionProvider supplies authentication to the transport. The core only asks whether it is valid.
type SessionProvider interface {
	Valid(ctx context.Context) bool
	Apply(req *http.Request) error
}

// FileSource is a readable upload source with a stable identifying name.
type FileSource interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Route maps an operation onto the JSON proxy.
//
// Pattern uses [http.ServeMux] syntax so the same table can both build and serve requests.
// Path wildcards are filled from [Params.Values] and removed from the body.
type Route struct {
	Method  string
	Pattern string
}

// Routes is the operation table of the proxy.
var Routes = map[OpKind]Route{
	OpCreatePlaylist:    {http.MethodPost, "/api/playlists"},
	OpListPlaylists:     {http.MethodGet, "/api/playlists"},
	OpRenamePlaylist:    {http.MethodPatch, "/api/playlists/{playlist_id}"},
	OpDeletePlaylist:    {http.MethodDelete, "/api/playlists/{playlist_id}"},
	OpListPlaylistSongs: {http.MethodGet, "/api/playlists/{playlist_id}/songs"},
	OpAddSongs:          {http.MethodPost, "/api/playlists/{playlist_id}/songs"},
	OpRemoveSong:        {http.MethodDelete, "/api/playlists/{playlist_id}/songs/{song_id}"},
	OpListLibrary:       {http.MethodGet, "/api/tracks"},
	OpUploadTrack:       {http.MethodPost, "/api/tracks"},
	OpDeleteTrack:       {http.MethodDelete, "/api/tracks/{song_id}"},
	OpChangeMetadata:    {http.MethodPut, "/api/tracks/{song_id}/metadata"},
	OpStreamURL:         {http.MethodGet, "/api/tracks/{song_id}/stream"},
	OpSearch:            {http.MethodGet, "/api/search"},
}

// ServePattern returns the route as an [http.ServeMux] pattern ("POST /api/playlists").
func (r Route) ServePattern() string {
	return r.Method + " " + r.Pattern
}

// Wildcards lists the "{name}" segments of the pattern.
func (r Route) Wildcards() []string {
	var names []string
	for _, seg := range strings.Split(r.Pattern, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			names = append(names, strings.Trim(seg, "{}"))
		}
	}
	return names
}

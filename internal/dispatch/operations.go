package dispatch

import (
	"fmt"
	"strings"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/taxonomy"
)

const defaultMaxResults = 10

// Operation is one logical action with typed parameters.
//
// Params validates the parameter shape and renders the transport parameters. It never contacts the service.
type Operation interface {
	Kind() services.OpKind
	Params(tax *taxonomy.Taxonomy) (services.Params, error)
}

type CreatePlaylist struct {
	Name string
}

type AddSongs struct {
	PlaylistID string
	SongIDs    []string
}

type RemoveSong struct {
	PlaylistID string
	SongID     string
}

type RenamePlaylist struct {
	PlaylistID string
	Name       string
}

type DeletePlaylist struct {
	PlaylistID string
}

type UploadTrack struct {
	File services.FileSource
}

type DeleteTrack struct {
	SongID string
}

// ChangeMetadata submits a whole record. Its "id" names the target.
type ChangeMetadata struct {
	Record models.TrackRecord
}

type Search struct {
	Query      string
	MaxResults int
}

type ResolveStreamURL struct {
	SongID string
}

type ListLibrary struct{}

type ListPlaylists struct{}

type ListPlaylistSongs struct {
	PlaylistID string
}

func (CreatePlaylist) Kind() services.OpKind    { return services.OpCreatePlaylist }
func (AddSongs) Kind() services.OpKind          { return services.OpAddSongs }
func (RemoveSong) Kind() services.OpKind        { return services.OpRemoveSong }
func (RenamePlaylist) Kind() services.OpKind    { return services.OpRenamePlaylist }
func (DeletePlaylist) Kind() services.OpKind    { return services.OpDeletePlaylist }
func (UploadTrack) Kind() services.OpKind       { return services.OpUploadTrack }
func (DeleteTrack) Kind() services.OpKind       { return services.OpDeleteTrack }
func (ChangeMetadata) Kind() services.OpKind    { return services.OpChangeMetadata }
func (Search) Kind() services.OpKind            { return services.OpSearch }
func (ResolveStreamURL) Kind() services.OpKind  { return services.OpStreamURL }
func (ListLibrary) Kind() services.OpKind       { return services.OpListLibrary }
func (ListPlaylists) Kind() services.OpKind     { return services.OpListPlaylists }
func (ListPlaylistSongs) Kind() services.OpKind { return services.OpListPlaylistSongs }

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return nil
}

func values(kv ...any) services.Params {
	v := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v[kv[i].(string)] = kv[i+1]
	}
	return services.Params{Values: v}
}

func (op CreatePlaylist) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("playlist name", op.Name); err != nil {
		return services.Params{}, err
	}
	return values(services.ParamName, op.Name), nil
}

// Params de-duplicates the requested ids, keeping the first occurrence of each.
func (op AddSongs) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("playlist id", op.PlaylistID); err != nil {
		return services.Params{}, err
	}
	if len(op.SongIDs) == 0 {
		return services.Params{}, fmt.Errorf("%w: song ids", shared.ErrMissingArgument)
	}

	seen := make(map[string]bool, len(op.SongIDs))
	ids := make([]string, 0, len(op.SongIDs))
	for _, id := range op.SongIDs {
		if err := required("song id", id); err != nil {
			return services.Params{}, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return values(services.ParamPlaylistID, op.PlaylistID, services.ParamSongIDs, ids), nil
}

func (op RemoveSong) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("playlist id", op.PlaylistID); err != nil {
		return services.Params{}, err
	}
	if err := required("song id", op.SongID); err != nil {
		return services.Params{}, err
	}
	return values(services.ParamPlaylistID, op.PlaylistID, services.ParamSongID, op.SongID), nil
}

func (op RenamePlaylist) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("playlist id", op.PlaylistID); err != nil {
		return services.Params{}, err
	}
	if err := required("playlist name", op.Name); err != nil {
		return services.Params{}, err
	}
	return values(services.ParamPlaylistID, op.PlaylistID, services.ParamName, op.Name), nil
}

func (op DeletePlaylist) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("playlist id", op.PlaylistID); err != nil {
		return services.Params{}, err
	}
	return values(services.ParamPlaylistID, op.PlaylistID), nil
}

func (op UploadTrack) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if op.File == nil {
		return services.Params{}, fmt.Errorf("%w: upload file", shared.ErrMissingArgument)
	}
	if err := required("file name", op.File.Name()); err != nil {
		return services.Params{}, err
	}
	return services.Params{Values: map[string]any{}, File: op.File}, nil
}

func (op DeleteTrack) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("song id", op.SongID); err != nil {
		return services.Params{}, err
	}
	return values(services.ParamSongID, op.SongID), nil
}

// Params checks that every field is classified and of the expected kind. Values that are odd but well-typed
// pass: the service accepts them and so must the client.
func (op ChangeMetadata) Params(tax *taxonomy.Taxonomy) (services.Params, error) {
	id := op.Record.ID()
	if err := required("song id", id); err != nil {
		return services.Params{}, err
	}
	if err := tax.CheckWrite(op.Record); err != nil {
		return services.Params{}, err
	}
	return values(services.ParamSongID, id, services.ParamMetadata, map[string]any(op.Record.Clone())), nil
}

func (op Search) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("query", op.Query); err != nil {
		return services.Params{}, err
	}
	limit := op.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	return values(services.ParamQuery, op.Query, services.ParamMaxResults, limit), nil
}

func (op ResolveStreamURL) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("song id", op.SongID); err != nil {
		return services.Params{}, err
	}
	return values(services.ParamSongID, op.SongID), nil
}

func (ListLibrary) Params(*taxonomy.Taxonomy) (services.Params, error) {
	return services.Params{}, nil
}

func (ListPlaylists) Params(*taxonomy.Taxonomy) (services.Params, error) {
	return services.Params{}, nil
}

func (op ListPlaylistSongs) Params(*taxonomy.Taxonomy) (services.Params, error) {
	if err := required("playlist id", op.PlaylistID); err != nil {
		return services.Params{}, err
	}
	return values(services.ParamPlaylistID, op.PlaylistID), nil
}

package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/gmx/internal/formatter"
	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/repositories"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/taxonomy"
	"github.com/urfave/cli/v3"
)

func requireArg(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return nil
}

// PlaylistCreate creates an empty playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if err := requireArg("playlist name", name); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	r.logger.Info("creating playlist", "name", name)
	p, err := d.CreatePlaylist(ctx, name)
	if err != nil {
		return err
	}

	r.writePlain("✓ Playlist created: %s\n", p.Name())
	r.writePlain("  ID: %s\n", p.ID())
	return nil
}

// PlaylistAdd adds songs to a playlist. Songs already present are reported, not re-added.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: gmx playlist add <playlist-id> <song-id>...", shared.ErrMissingArgument)
	}
	playlistID, songIDs := args[0], args[1:]

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	added, err := d.AddSongs(ctx, playlistID, songIDs...)
	if err != nil {
		return err
	}

	r.writePlain("✓ Added %d of %d song(s) to %s\n", len(added), len(songIDs), playlistID)
	var present []string
	for _, id := range songIDs {
		if !slices.Contains(added, id) {
			present = append(present, id)
		}
	}
	if len(present) > 0 {
		r.writePlain("  Already present: %s\n", strings.Join(present, ", "))
	}
	return nil
}

// PlaylistRemove removes one song from a playlist.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	playlistID, songID := cmd.StringArg("playlist"), cmd.StringArg("song")
	if err := requireArg("playlist id", playlistID); err != nil {
		return err
	}
	if err := requireArg("song id", songID); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}
	if err := d.RemoveSong(ctx, playlistID, songID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from %s\n", songID, playlistID)
}

// PlaylistRename renames a playlist.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	playlistID, name := cmd.StringArg("playlist"), cmd.StringArg("name")
	if err := requireArg("playlist id", playlistID); err != nil {
		return err
	}
	if err := requireArg("new name", name); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}
	if err := d.RenamePlaylist(ctx, playlistID, name); err != nil {
		return err
	}
	return r.writePlain("✓ Renamed %s to %q\n", playlistID, name)
}

// PlaylistDelete deletes a playlist. A recorded leftover with the same id is marked resolved.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("playlist")
	if err := requireArg("playlist id", playlistID); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}
	if err := d.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}

	r.resolveLeftover(models.LeftoverPlaylist, playlistID)
	return r.writePlain("✓ Deleted playlist %s\n", playlistID)
}

// PlaylistList lists playlists with their track counts.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	playlists, err := d.ListPlaylists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists.\n")
	}
	r.writePlain("Found %d playlist(s):\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s (%d tracks) [%s]\n", i+1, p.Name, p.TrackCount, p.ID)
	}
	return nil
}

// PlaylistShow shows a playlist's songs, resolved against the library.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("playlist")
	if err := requireArg("playlist", arg); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	var p *models.Playlist
	if cmd.Bool("by-name") {
		p, err = d.FindPlaylist(ctx, arg)
	} else {
		p, err = d.PlaylistSongs(ctx, arg)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"id": p.ID(), "name": p.Name(), "song_ids": p.TrackIDs()}, cmd.Bool("pretty"))
	}

	library, err := d.ListLibrary(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]models.TrackRecord, len(library))
	for _, rec := range library {
		byID[rec.ID()] = rec
	}

	tracks := make([]models.TrackRecord, 0, p.Len())
	for _, id := range p.TrackIDs() {
		if rec, ok := byID[id]; ok {
			tracks = append(tracks, rec)
		} else {
			tracks = append(tracks, models.TrackRecord{"id": id, "name": "(not in library)"})
		}
	}

	r.writePlainHeader(fmt.Sprintf("%s [%s]", p.Name(), p.ID()))
	if len(tracks) == 0 {
		return r.writePlain("No songs.\n")
	}
	return r.writeBytes(formatter.TracksToText(tracks))
}

// TrackUpload uploads a local file and prints the id the service assigned.
func (r *Runner) TrackUpload(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if err := requireArg("file path", path); err != nil {
		return err
	}

	file := services.NewLocalFile(path)
	size, err := file.Size()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	tags, err := file.Tags()
	if err != nil {
		r.logger.Debug("no readable tags", "path", path, "error", err)
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	r.logger.Info("uploading track", "path", path, "size", formatter.Size(size))
	ids, err := d.UploadTrack(ctx, file)
	if err != nil {
		return err
	}

	r.writePlain("✓ Uploaded %s (%s)\n", path, formatter.Size(size))
	r.writePlain("  ID: %s\n", ids[file.Name()])
	if len(tags) > 0 {
		rec := models.TrackRecord(tags)
		r.writePlain("  Tags: %s - %s\n", rec.Text("artist"), rec.Text("name"))
	}
	return nil
}

// TrackDelete deletes a library track. A recorded leftover with the same id is marked resolved.
func (r *Runner) TrackDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if err := requireArg("track id", id); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}
	if err := d.DeleteTrack(ctx, id); err != nil {
		return err
	}

	r.resolveLeftover(models.LeftoverTrack, id)
	return r.writePlain("✓ Deleted track %s\n", id)
}

// TrackEdit writes field assignments to a track, then waits for the change to become visible and
// prints the comparison report. A report with mismatches fails the command.
func (r *Runner) TrackEdit(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if err := requireArg("track id", id); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	delta, err := parseAssignments(d.Taxonomy(), cmd.StringSlice("set"))
	if err != nil {
		return err
	}

	before, err := d.FetchTrack(ctx, id)
	if err != nil {
		return err
	}

	r.logger.Info("changing metadata", "track", id, "fields", delta.Keys())
	if err := d.ChangeMetadata(ctx, before.Merge(delta)); err != nil {
		return err
	}

	if cmd.Bool("no-verify") {
		return r.writePlain("✓ Change sent for %s (%s)\n", id, strings.Join(delta.Keys(), ", "))
	}

	rec, opts := r.reconciler(d)
	report, err := rec.Verify(ctx, models.NewPendingMutation(before, delta, 0), opts)
	if err != nil {
		return err
	}

	if err := r.emit(cmd, "track-"+id, func(f formatter.Format) ([]byte, error) {
		return formatter.RenderReport(report, f)
	}); err != nil {
		return err
	}
	return report.Err()
}

// TrackShow prints one record with every field, or the library listing without an id.
func (r *Runner) TrackShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	if id != "" {
		rec, err := d.FetchTrack(ctx, id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(rec, cmd.Bool("pretty"))
		}
		return r.writeBytes(formatter.TrackToText(rec))
	}

	library, err := d.ListLibrary(ctx)
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(library, cmd.Bool("pretty"))
	case cmd.Bool("csv"):
		data, err := formatter.TracksToCSV(library, d.Taxonomy().Names()...)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	}

	r.writePlain("Library: %d track(s)\n\n", len(library))
	return r.writeBytes(formatter.TracksToText(library))
}

// Search runs a library search and prints hits by similarity to the query.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if err := requireArg("query", query); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	r.logger.Info("searching library", "query", query)
	res, err := d.Search(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(res.Songs, cmd.Bool("pretty"))
	}

	if len(res.Ranked) == 0 {
		return r.writePlain("No results for %q.\n", query)
	}

	r.writePlain("Found %d result(s) for %q:\n\n", len(res.Ranked), query)
	for i, m := range res.Ranked {
		r.writePlain("%d. %s - %s [%s] (%.2f)\n", i+1, m.Track.Text("artist"), m.Track.Text("name"), m.Track.ID(), m.Score)
	}
	return nil
}

// Stream resolves and prints a playable URL, optionally opening it in the browser.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if err := requireArg("song id", id); err != nil {
		return err
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	url, err := d.StreamURL(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("open") {
		r.logger.Info("opening stream in browser", "song", id)
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}
	return r.writePlain("%s\n", url)
}

// parseAssignments turns field=value pairs into a delta typed by the taxonomy.
// The literal null clears a field.
func parseAssignments(tax *taxonomy.Taxonomy, pairs []string) (models.TrackRecord, error) {
	delta := models.TrackRecord{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: expected field=value, got %q", shared.ErrInvalidArgument, pair)
		}

		field, ok := tax.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", shared.ErrUnclassifiedField, name)
		}

		var v any
		var err error
		switch {
		case raw == "null" && field.Category == taxonomy.Mutable:
			return nil, fmt.Errorf("%w: %s cannot be cleared", shared.ErrInvalidArgument, name)
		case raw == "null":
			v = nil
		case field.Kind == taxonomy.Int:
			v, err = strconv.ParseInt(raw, 10, 64)
		case field.Kind == taxonomy.Bool:
			v, err = strconv.ParseBool(raw)
		default:
			v = raw
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects %s: %v", shared.ErrInvalidArgument, name, field.Kind, err)
		}

		if err := tax.CheckValue(name, v); err != nil {
			return nil, err
		}
		delta[name] = v
	}

	if len(delta) == 0 {
		return nil, fmt.Errorf("%w: at least one --set", shared.ErrMissingArgument)
	}
	return delta, nil
}

// emit renders a report in the --format format and writes it to output and, with --output, to a file.
func (r *Runner) emit(cmd *cli.Command, name string, render func(formatter.Format) ([]byte, error)) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	data, err := render(f)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(data, path, name, f)
		if err != nil {
			return err
		}
		r.logger.Info("report saved", "path", written)
	}
	return r.writeBytes(data)
}

// resolveLeftover marks a recorded leftover as cleaned up. Missing records and an unavailable
// database are ignored; most deleted entities were never leftovers.
func (r *Runner) resolveLeftover(kind, serviceID string) {
	db, err := r.database()
	if err != nil {
		r.logger.Debug("skipping leftover bookkeeping", "error", err)
		return
	}
	if err := repositories.NewLeftoverRepository(db).Resolve(kind, serviceID); err == nil {
		r.logger.Info("resolved leftover", "kind", kind, "id", serviceID)
	}
}

package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/desertthunder/gmx/internal/dispatch"
	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/reconcile"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/taxonomy"
)

// State keys shared between scenario steps.
const (
	KeyPlaylist = "playlist"
	KeySongID   = "song_id"
	KeyOriginal = "original"
	KeyDelta    = "delta"
	KeyObserved = "observed"
	KeyUploaded = "uploaded"
	KeySearch   = "search"
	KeyStream   = "stream_url"
)

// Env holds the collaborators the built-in scenarios run against.
type Env struct {
	Dispatcher *dispatch.Dispatcher
	Reconciler *reconcile.Reconciler
	Options    reconcile.Options
	UploadFile services.FileSource // required by the upload scenario
	SongID     string              // empty picks a random library song
	Query      string              // search scenario query, default "e"
	ExactNames bool                // playlist scenario uses its names without the run-id suffix
}

// Scenario is a named, buildable verification sequence.
type Scenario struct {
	Name        string
	Description string
	Build       func(env *Env) (*Sequence, error)
}

const (
	ScenarioPlaylist = "playlist-lifecycle"
	ScenarioUpload   = "upload-delete"
	ScenarioMetadata = "metadata-roundtrip"
	ScenarioSearch   = "search"
	ScenarioStream   = "stream-url"
)

// Scenarios lists the built-in scenarios in display order.
func Scenarios() []Scenario {
	return []Scenario{
		{ScenarioPlaylist, "create, populate, rename and delete a playlist", PlaylistLifecycle},
		{ScenarioUpload, "upload a local file and delete the resulting track", UploadDelete},
		{ScenarioMetadata, "change every mutable field of a song, verify, then revert", MetadataRoundTrip},
		{ScenarioSearch, "run a library search", Search},
		{ScenarioStream, "resolve a streaming URL for a song", StreamURL},
	}
}

// LookupScenario finds a built-in scenario by name.
func LookupScenario(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: unknown scenario %q", shared.ErrInvalidArgument, name)
}

// BuildAll builds the named scenarios, or every scenario when names is empty.
// Scenarios that cannot be built with env are returned as errors alongside the rest.
func BuildAll(env *Env, names ...string) ([]*Sequence, []error) {
	if len(names) == 0 {
		for _, s := range Scenarios() {
			names = append(names, s.Name)
		}
	}

	var seqs []*Sequence
	var errs []error
	for _, name := range names {
		sc, err := LookupScenario(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seq, err := sc.Build(env)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		seqs = append(seqs, seq)
	}
	return seqs, errs
}

func unsatisfied(op, format string, args ...any) *models.Failure {
	return models.NewFailure(models.Unsatisfied, op, format, args...)
}

// pickSong resolves the song a scenario works on and stores it under KeySongID.
func (env *Env) pickSong(ctx context.Context, st *State) (string, error) {
	if id, ok := Lookup[string](st, KeySongID); ok {
		return id, nil
	}

	id := env.SongID
	if id == "" {
		library, err := env.Dispatcher.ListLibrary(ctx)
		if err != nil {
			return "", err
		}
		if len(library) == 0 {
			return "", models.NewFailure(models.Invalid, "pick_song", "library is empty")
		}
		id = library[rand.IntN(len(library))].ID()
	}
	st.Set(KeySongID, id)
	return id, nil
}

// PlaylistLifecycle creates a playlist, adds and removes a song with membership checks, renames it, deletes it and
// confirms it is gone.
func PlaylistLifecycle(env *Env) (*Sequence, error) {
	d := env.Dispatcher
	names := func(st *State) (string, string) {
		if env.ExactNames {
			return "test playlist", "modified playlist"
		}
		suffix := st.RunID()
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		return "test playlist " + suffix, "modified playlist " + suffix
	}
	playlist := func(st *State) *models.Playlist {
		p, _ := Lookup[*models.Playlist](st, KeyPlaylist)
		return p
	}
	membership := func(ctx context.Context, st *State, want ...string) error {
		remote, err := d.PlaylistSongs(ctx, playlist(st).ID())
		if err != nil {
			return err
		}
		got := remote.TrackIDs()
		if want == nil {
			want = []string{}
		}
		if got == nil {
			got = []string{}
		}
		if !slices.Equal(got, want) {
			return unsatisfied("verify_membership", "expected %v, got %v", want, got)
		}
		return nil
	}

	return NewSequence(ScenarioPlaylist,
		Step{Order: "1", Name: "create", Run: func(ctx context.Context, st *State) error {
			name, _ := names(st)
			p, err := d.CreatePlaylist(ctx, name)
			if err != nil {
				return err
			}
			st.Set(KeyPlaylist, p)
			st.Created(models.LeftoverPlaylist, p.ID(), p.Name())
			return nil
		}},
		Step{Order: "2", Name: "add_song", Run: func(ctx context.Context, st *State) error {
			song, err := env.pickSong(ctx, st)
			if err != nil {
				return err
			}
			if _, err := d.AddSongs(ctx, playlist(st).ID(), song); err != nil {
				return err
			}
			playlist(st).Add(song)
			return membership(ctx, st, song)
		}},
		Step{Order: "2a", Name: "remove_song", Run: func(ctx context.Context, st *State) error {
			song, _ := Lookup[string](st, KeySongID)
			if err := d.RemoveSong(ctx, playlist(st).ID(), song); err != nil {
				return err
			}
			playlist(st).Remove(song)
			return membership(ctx, st)
		}},
		Step{Order: "3", Name: "change_name", Run: func(ctx context.Context, st *State) error {
			_, renamed := names(st)
			p := playlist(st)
			if err := d.RenamePlaylist(ctx, p.ID(), renamed); err != nil {
				return err
			}
			st.Renamed(models.LeftoverPlaylist, p.ID(), renamed)
			return p.Rename(renamed)
		}},
		Step{Order: "4", Name: "delete", Run: func(ctx context.Context, st *State) error {
			p := playlist(st)
			if err := d.DeletePlaylist(ctx, p.ID()); err != nil {
				return err
			}
			st.Removed(models.LeftoverPlaylist, p.ID())
			return p.Delete()
		}},
		Step{Order: "5", Name: "verify_vanished", Run: func(ctx context.Context, st *State) error {
			_, renamed := names(st)
			_, err := d.FindPlaylist(ctx, renamed)
			if err == nil {
				return unsatisfied("verify_vanished", "playlist %q still exists after delete", renamed)
			}
			if models.KindOf(err) == models.EntityVanished {
				return nil
			}
			return err
		}},
	)
}

// UploadDelete uploads env.UploadFile, checks the result is keyed by the file's name and deletes the new track.
func UploadDelete(env *Env) (*Sequence, error) {
	if env.UploadFile == nil {
		return nil, fmt.Errorf("%w: scenarios.upload_file", shared.ErrMissingConfig)
	}
	d := env.Dispatcher
	src := env.UploadFile

	return NewSequence(ScenarioUpload,
		Step{Order: "1", Name: "upload", Run: func(ctx context.Context, st *State) error {
			ids, err := d.UploadTrack(ctx, src)
			if err != nil {
				return err
			}
			id, ok := ids[src.Name()]
			if !ok || len(ids) != 1 {
				return unsatisfied("upload", "expected one id keyed by %q, got %v", src.Name(), ids)
			}
			st.Set(KeyUploaded, id)
			st.Created(models.LeftoverTrack, id, src.Name())
			return nil
		}},
		Step{Order: "2", Name: "delete", Run: func(ctx context.Context, st *State) error {
			id, _ := Lookup[string](st, KeyUploaded)
			if err := d.DeleteTrack(ctx, id); err != nil {
				return err
			}
			st.Removed(models.LeftoverTrack, id)
			return nil
		}},
		Step{Order: "3", Name: "verify_vanished", Run: func(ctx context.Context, st *State) error {
			id, _ := Lookup[string](st, KeyUploaded)
			_, err := d.FetchTrack(ctx, id)
			if err == nil {
				return unsatisfied("verify_vanished", "track %s still in library after delete", id)
			}
			if models.KindOf(err) == models.EntityVanished {
				return nil
			}
			return err
		}},
	)
}

// MetadataRoundTrip perturbs every mutable field present on a song, verifies the change against the taxonomy, then
// writes the original record back and checks every non-server field returned to its original value.
func MetadataRoundTrip(env *Env) (*Sequence, error) {
	d := env.Dispatcher
	tax := d.Taxonomy()

	verify := func(ctx context.Context, st *State, m *models.PendingMutation) (*reconcile.ComparisonReport, error) {
		r := env.Reconciler
		if store := st.Snapshots(); store != nil {
			r = r.WithSnapshots(store)
		}
		report, err := r.Verify(ctx, m, env.Options)
		if report != nil {
			st.AddReport(report)
		}
		if err != nil {
			return report, err
		}
		if !report.Satisfied() {
			return report, report.Failure
		}
		st.Set(KeyObserved, report.Observed)
		return report, nil
	}

	return NewSequence(ScenarioMetadata,
		Step{Order: "1", Name: "snapshot", Run: func(ctx context.Context, st *State) error {
			song, err := env.pickSong(ctx, st)
			if err != nil {
				return err
			}
			orig, err := d.FetchTrack(ctx, song)
			if err != nil {
				return err
			}
			st.Set(KeyOriginal, orig)
			return nil
		}},
		Step{Order: "2", Name: "change", Run: func(ctx context.Context, st *State) error {
			orig, _ := Lookup[models.TrackRecord](st, KeyOriginal)
			delta := models.TrackRecord{}
			for _, name := range tax.Names(taxonomy.Mutable) {
				old, ok := orig[name]
				if !ok {
					continue
				}
				v, err := tax.Perturb(name, old)
				if err != nil {
					return err
				}
				delta[name] = v
			}
			if len(delta) == 0 {
				return models.NewFailure(models.Invalid, "change", "track %s has no mutable fields", orig.ID())
			}
			st.Set(KeyDelta, delta)
			return d.ChangeMetadata(ctx, orig.Merge(delta))
		}},
		Step{Order: "3", Name: "verify_change", Run: func(ctx context.Context, st *State) error {
			orig, _ := Lookup[models.TrackRecord](st, KeyOriginal)
			delta, _ := Lookup[models.TrackRecord](st, KeyDelta)
			_, err := verify(ctx, st, models.NewPendingMutation(orig, delta, env.Options.Settle))
			return err
		}},
		Step{Order: "4", Name: "revert", Run: func(ctx context.Context, st *State) error {
			orig, _ := Lookup[models.TrackRecord](st, KeyOriginal)
			return d.ChangeMetadata(ctx, orig)
		}},
		Step{Order: "5", Name: "verify_revert", Run: func(ctx context.Context, st *State) error {
			orig, _ := Lookup[models.TrackRecord](st, KeyOriginal)
			changed, _ := Lookup[models.TrackRecord](st, KeyObserved)
			delta, _ := Lookup[models.TrackRecord](st, KeyDelta)

			report, err := verify(ctx, st, models.NewPendingMutation(changed, orig.Only(delta.Keys()...), env.Options.Settle))
			if err != nil {
				return err
			}

			var drifted []string
			for _, name := range orig.Keys() {
				if c, _ := tax.Classify(name); c == taxonomy.ServerOwned {
					continue
				}
				if !taxonomy.Equal(orig[name], report.Observed[name]) {
					drifted = append(drifted, fmt.Sprintf("%s: %v != %v", name, orig[name], report.Observed[name]))
				}
			}
			if len(drifted) > 0 {
				return unsatisfied("verify_revert", "fields differ from the original: %s", strings.Join(drifted, "; "))
			}
			return nil
		}},
	)
}

// Search runs a library query and requires a successful response.
func Search(env *Env) (*Sequence, error) {
	query := env.Query
	if query == "" {
		query = "e"
	}
	return NewSequence(ScenarioSearch,
		Step{Order: "1", Name: "search", Run: func(ctx context.Context, st *State) error {
			res, err := env.Dispatcher.Search(ctx, query, 0)
			if err != nil {
				return err
			}
			st.Set(KeySearch, res)
			return nil
		}},
	)
}

// StreamURL resolves a streaming URL for a song and requires an http(s) URL.
func StreamURL(env *Env) (*Sequence, error) {
	return NewSequence(ScenarioStream,
		Step{Order: "1", Name: "pick_song", Run: func(ctx context.Context, st *State) error {
			_, err := env.pickSong(ctx, st)
			return err
		}},
		Step{Order: "2", Name: "get_stream_url", Run: func(ctx context.Context, st *State) error {
			song, _ := Lookup[string](st, KeySongID)
			url, err := env.Dispatcher.StreamURL(ctx, song)
			if err != nil {
				return err
			}
			if !strings.HasPrefix(url, "http") {
				return unsatisfied("get_stream_url", "expected an http url, got %q", url)
			}
			st.Set(KeyStream, url)
			return nil
		}},
	)
}

package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/taxonomy"
)

// FakeService is an in-memory media library that behaves like the remote service:
//   - Frozen, Dependent, ServerOwned and Limited fields in a metadata write are silently ignored
//   - Dependent fields are recomputed from their masters
//   - writes become visible only after the settle delay
//   - with drift enabled, play counts change on their own
//
// It implements [services.Transport] directly and serves the same operations over HTTP via [FakeService.Handler].
type FakeService struct {
	mu        sync.Mutex
	tax       *taxonomy.Taxonomy
	settle    time.Duration
	drift     bool
	expired   bool
	seq       int
	tracks    map[string]models.TrackRecord
	pending   []pendingWrite
	playlists map[string]*fakePlaylist
	injected  map[services.OpKind]injected
	calls     []services.OpKind
}

type pendingWrite struct {
	id      string
	visible time.Time
	changes models.TrackRecord
}

type fakePlaylist struct {
	id      string
	name    string
	members []string
}

type injected struct {
	status int
	body   string
}

// NewFakeService creates an empty library. Metadata writes become visible after settle.
func NewFakeService(tax *taxonomy.Taxonomy, settle time.Duration) *FakeService {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &FakeService{
		tax:       tax,
		settle:    settle,
		tracks:    make(map[string]models.TrackRecord),
		playlists: make(map[string]*fakePlaylist),
		injected:  make(map[services.OpKind]injected),
	}
}

// SetDrift makes every visible metadata write also bump server-owned counters.
func (f *FakeService) SetDrift(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drift = on
}

// SetSessionExpired makes every call answer 401.
func (f *FakeService) SetSessionExpired(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = on
}

// Inject makes the next call of kind answer with status and body instead of being handled.
func (f *FakeService) Inject(kind services.OpKind, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injected[kind] = injected{status: status, body: body}
}

// Calls returns the operations received so far, in order.
func (f *FakeService) Calls() []services.OpKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.OpKind(nil), f.calls...)
}

// Seed adds tracks to the library. Dependent fields are derived before storing.
func (f *FakeService) Seed(recs ...models.TrackRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range recs {
		rec = rec.Clone()
		f.derive(rec)
		f.tracks[rec.ID()] = rec
	}
}

// Track returns the currently visible record for id.
func (f *FakeService) Track(id string) (models.TrackRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settlePending()
	rec, ok := f.tracks[id]
	return rec.Clone(), ok
}

// PlaylistNames returns the sorted names of live playlists.
func (f *FakeService) PlaylistNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, p := range f.playlists {
		names = append(names, p.name)
	}
	sort.Strings(names)
	return names
}

// NewTrack builds a record carrying every field of the default taxonomy.
func NewTrack(id, name, artist, album string) models.TrackRecord {
	return models.TrackRecord{
		"id":                id,
		"name":              name,
		"artist":            artist,
		"album":             album,
		"albumArtist":       artist,
		"composer":          "",
		"genre":             "Rock",
		"year":              int64(2001),
		"track":             int64(1),
		"totalTracks":       int64(10),
		"disc":              int64(1),
		"totalDiscs":        int64(1),
		"rating":            int64(0),
		"type":              int64(2),
		"deleted":           false,
		"creationDate":      int64(1700000000000),
		"beatsPerMinute":    int64(0),
		"url":               "",
		"comment":           "",
		"playCount":         int64(0),
		"lastPlayed":        int64(0),
		"subjectToCuration": false,
		"matchedId":         "",
		"albumArtUrl":       nil,
		"durationMillis":    int64(215000),
	}
}

// Send implements [services.Transport]. Values round-trip through JSON so they arrive in the shapes the HTTP
// handler would see.
func (f *FakeService) Send(ctx context.Context, kind services.OpKind, params services.Params) (*services.RawResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values, err := roundTrip(params.Values)
	if err != nil {
		return nil, err
	}

	var upload *fakeUpload
	if params.File != nil {
		rc, err := params.File.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", params.File.Name(), err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		upload = &fakeUpload{name: params.File.Name(), data: data}
	}

	status, body := f.handle(kind, values, upload)
	return &services.RawResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       body,
	}, nil
}

// Handler serves the operations at the paths in [services.Routes].
func (f *FakeService) Handler() http.Handler {
	mux := http.NewServeMux()
	for kind, route := range services.Routes {
		mux.HandleFunc(route.ServePattern(), func(w http.ResponseWriter, r *http.Request) {
			values := map[string]any{}
			var upload *fakeUpload

			switch {
			case strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/"):
				file, header, err := r.FormFile(services.ParamFile)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				data, _ := io.ReadAll(file)
				file.Close()
				upload = &fakeUpload{name: header.Filename, data: data}
				for k, v := range r.MultipartForm.Value {
					values[k] = v[0]
				}
			case r.Method == http.MethodGet || r.Method == http.MethodDelete:
				for k, v := range r.URL.Query() {
					values[k] = v[0]
				}
			default:
				dec := json.NewDecoder(r.Body)
				dec.UseNumber()
				if err := dec.Decode(&values); err != nil && err != io.EOF {
					http.Error(w, "bad json", http.StatusBadRequest)
					return
				}
			}

			for _, name := range route.Wildcards() {
				values[name] = r.PathValue(name)
			}

			status, body := f.handle(kind, values, upload)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write(body)
		})
	}
	return mux
}

type fakeUpload struct {
	name string
	data []byte
}

func roundTrip(values map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(values) == 0 {
		return out, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	return out, nil
}

func (f *FakeService) handle(kind services.OpKind, values map[string]any, upload *fakeUpload) (int, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, kind)

	if inj, ok := f.injected[kind]; ok {
		delete(f.injected, kind)
		return inj.status, []byte(inj.body)
	}
	if f.expired {
		return http.StatusUnauthorized, envelope(false, nil, "login required")
	}

	f.settlePending()

	data, err := f.apply(kind, values, upload)
	if err != nil {
		return http.StatusOK, envelope(false, nil, err.Error())
	}
	return http.StatusOK, envelope(true, data, "")
}

func envelope(ok bool, data any, msg string) []byte {
	body := map[string]any{"success": ok}
	if data != nil {
		body["data"] = data
	}
	if msg != "" {
		body["error"] = msg
	}
	out, _ := json.Marshal(body)
	return out
}

func (f *FakeService) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *FakeService) apply(kind services.OpKind, v map[string]any, upload *fakeUpload) (any, error) {
	str := func(k string) string {
		s, _ := v[k].(string)
		return s
	}

	switch kind {
	case services.OpCreatePlaylist:
		p := &fakePlaylist{id: f.nextID("pl"), name: str(services.ParamName)}
		f.playlists[p.id] = p
		return playlistJSON(p), nil

	case services.OpListPlaylists:
		out := []map[string]any{}
		for _, p := range f.sortedPlaylists() {
			out = append(out, map[string]any{"id": p.id, "name": p.name, "track_count": len(p.members)})
		}
		return out, nil

	case services.OpListPlaylistSongs:
		p, err := f.playlist(str(services.ParamPlaylistID))
		if err != nil {
			return nil, err
		}
		return playlistJSON(p), nil

	case services.OpAddSongs:
		p, err := f.playlist(str(services.ParamPlaylistID))
		if err != nil {
			return nil, err
		}
		ids, _ := v[services.ParamSongIDs].([]any)
		added := []string{}
		for _, raw := range ids {
			id := fmt.Sprint(raw)
			if _, ok := f.tracks[id]; !ok {
				return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
			}
			if !contains(p.members, id) {
				p.members = append(p.members, id)
				added = append(added, id)
			}
		}
		return map[string]any{"id": p.id, "added": added}, nil

	case services.OpRemoveSong:
		p, err := f.playlist(str(services.ParamPlaylistID))
		if err != nil {
			return nil, err
		}
		id := str(services.ParamSongID)
		removed := contains(p.members, id)
		p.members = without(p.members, id)
		return map[string]any{"id": p.id, "removed": removed}, nil

	case services.OpRenamePlaylist:
		p, err := f.playlist(str(services.ParamPlaylistID))
		if err != nil {
			return nil, err
		}
		p.name = str(services.ParamName)
		return playlistJSON(p), nil

	case services.OpDeletePlaylist:
		p, err := f.playlist(str(services.ParamPlaylistID))
		if err != nil {
			return nil, err
		}
		delete(f.playlists, p.id)
		return map[string]any{"id": p.id}, nil

	case services.OpUploadTrack:
		if upload == nil || len(upload.data) == 0 {
			return nil, fmt.Errorf("%w: empty upload", shared.ErrInvalidInput)
		}
		id := f.nextID("tr")
		base := strings.TrimSuffix(filepath.Base(upload.name), filepath.Ext(upload.name))
		rec := NewTrack(id, base, "Unknown Artist", "Unknown Album")
		f.derive(rec)
		f.tracks[id] = rec
		key := upload.name
		if name := str(services.ParamName); name != "" {
			key = name
		}
		return map[string]string{key: id}, nil

	case services.OpDeleteTrack:
		id := str(services.ParamSongID)
		if _, ok := f.tracks[id]; !ok {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
		}
		delete(f.tracks, id)
		for _, p := range f.playlists {
			p.members = without(p.members, id)
		}
		return map[string]any{"id": id}, nil

	case services.OpChangeMetadata:
		id := str(services.ParamSongID)
		if _, ok := f.tracks[id]; !ok {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
		}
		md, _ := v[services.ParamMetadata].(map[string]any)
		changes := models.TrackRecord{}
		for k, val := range md {
			if c, err := f.tax.Classify(k); err == nil && c == taxonomy.Mutable {
				changes[k] = taxonomy.Normalize(val)
			}
		}
		f.pending = append(f.pending, pendingWrite{id: id, visible: time.Now().Add(f.settle), changes: changes})
		f.settlePending()
		return map[string]any{"id": id}, nil

	case services.OpListLibrary:
		out := []models.TrackRecord{}
		for _, id := range f.sortedTrackIDs() {
			out = append(out, f.tracks[id])
		}
		return out, nil

	case services.OpSearch:
		q := strings.ToLower(str(services.ParamQuery))
		songs := []models.TrackRecord{}
		for _, id := range f.sortedTrackIDs() {
			rec := f.tracks[id]
			hay := strings.ToLower(rec.Text("name") + " " + rec.Text("artist") + " " + rec.Text("album"))
			if q != "" && strings.Contains(hay, q) {
				songs = append(songs, rec)
			}
		}
		return map[string]any{"songs": songs}, nil

	case services.OpStreamURL:
		id := str(services.ParamSongID)
		if _, ok := f.tracks[id]; !ok {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
		}
		return map[string]any{"url": "https://stream.example.com/" + id}, nil
	}

	return nil, fmt.Errorf("%w: %s", shared.ErrNotImplemented, kind)
}

// settlePending applies writes whose settle delay has passed. Callers hold mu.
func (f *FakeService) settlePending() {
	now := time.Now()
	remaining := f.pending[:0]
	for _, w := range f.pending {
		if now.Before(w.visible) {
			remaining = append(remaining, w)
			continue
		}
		rec, ok := f.tracks[w.id]
		if !ok {
			continue
		}
		for k, v := range w.changes {
			rec[k] = v
		}
		f.derive(rec)
		if f.drift {
			n, _ := taxonomy.Normalize(rec["playCount"]).(int64)
			rec["playCount"] = n + 1
			rec["lastPlayed"] = now.UnixMilli()
		}
	}
	f.pending = remaining
}

func (f *FakeService) derive(rec models.TrackRecord) {
	for _, name := range f.tax.Names(taxonomy.Dependent) {
		field, _ := f.tax.Field(name)
		master, ok := rec[field.Master]
		if !ok {
			continue
		}
		if v, err := f.tax.Derive(name, master); err == nil {
			rec[name] = v
		}
	}
}

func (f *FakeService) playlist(id string) (*fakePlaylist, error) {
	p, ok := f.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p, nil
}

func (f *FakeService) sortedPlaylists() []*fakePlaylist {
	out := make([]*fakePlaylist, 0, len(f.playlists))
	for _, p := range f.playlists {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (f *FakeService) sortedTrackIDs() []string {
	ids := make([]string, 0, len(f.tracks))
	for id := range f.tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func playlistJSON(p *fakePlaylist) map[string]any {
	return map[string]any{"id": p.id, "name": p.name, "song_ids": append([]string{}, p.members...)}
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

var _ services.Transport = (*FakeService)(nil)

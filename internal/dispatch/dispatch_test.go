package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	tu "github.com/desertthunder/gmx/internal/testing"
)

type staticSession struct{ valid bool }

func (s staticSession) Valid(context.Context) bool { return s.valid }
func (s staticSession) Apply(*http.Request) error  { return nil }

type failingTransport struct{ calls int }

func (f *failingTransport) Send(context.Context, services.OpKind, services.Params) (*services.RawResponse, error) {
	f.calls++
	return nil, errors.New("connection reset")
}

func newFake(t *testing.T) (*Dispatcher, *tu.FakeService) {
	t.Helper()
	fake := tu.NewFakeService(nil, 0)
	fake.Seed(
		tu.NewTrack("t1", "Everlong", "Foo Fighters", "The Colour and the Shape"),
		tu.NewTrack("t2", "Monkey Wrench", "Foo Fighters", "The Colour and the Shape"),
		tu.NewTrack("t3", "Heart-Shaped Box", "Nirvana", "In Utero"),
	)
	return New(fake, nil, nil, nil), fake
}

func TestClassify(t *testing.T) {
	tt := []struct {
		name    string
		status  int
		body    string
		kind    models.FailureKind
		payload string
	}{
		{name: "data member", status: 200, body: `{"success":true,"data":{"id":"x"}}`, payload: `{"id":"x"}`},
		{name: "whole object without data", status: 200, body: `{"id":"x"}`, payload: `{"id":"x"}`},
		{name: "bare array", status: 200, body: `[1,2]`, payload: `[1,2]`},
		{name: "logical rejection", status: 200, body: `{"success":false,"error":"no such playlist"}`, kind: models.Rejected},
		{name: "unauthorized", status: 401, body: `{}`, kind: models.SessionExpired},
		{name: "forbidden", status: 403, body: ``, kind: models.SessionExpired},
		{name: "bad request", status: 400, body: `{"error":"bad"}`, kind: models.Rejected},
		{name: "not found", status: 404, body: `nope`, kind: models.Rejected},
		{name: "server error", status: 502, body: `<html>`, kind: models.Transport},
		{name: "html on 200", status: 200, body: `<html>login</html>`, kind: models.Transport},
		{name: "empty body", status: 200, body: ``, kind: models.Transport},
		{name: "non-bool success flag", status: 200, body: `{"success":"yes"}`, kind: models.Transport},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			r := Classify("op", &services.RawResponse{StatusCode: tc.status, Body: []byte(tc.body)})
			if tc.kind == 0 {
				require.True(t, r.OK(), "unexpected failure: %v", r.Err())
				assert.JSONEq(t, tc.payload, string(r.Payload()))
				return
			}
			require.False(t, r.OK())
			assert.Equal(t, tc.kind, r.Failure().Kind)
			assert.ErrorIs(t, r.Err(), tc.kind.Sentinel())
		})
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid session skips the transport", func(t *testing.T) {
		fake := tu.NewFakeService(nil, 0)
		d := New(fake, staticSession{valid: false}, nil, nil)

		r := d.Execute(ctx, ListPlaylists{})
		require.False(t, r.OK())
		assert.Equal(t, models.SessionExpired, r.Failure().Kind)
		assert.Empty(t, fake.Calls())
	})

	t.Run("valid session", func(t *testing.T) {
		fake := tu.NewFakeService(nil, 0)
		d := New(fake, staticSession{valid: true}, nil, nil)
		assert.True(t, d.Execute(ctx, ListPlaylists{}).OK())
	})

	t.Run("server-side expiry", func(t *testing.T) {
		fake := tu.NewFakeService(nil, 0)
		fake.SetSessionExpired(true)
		d := New(fake, nil, nil, nil)

		_, err := d.ListLibrary(ctx)
		assert.ErrorIs(t, err, shared.ErrSessionExpired)
	})

	t.Run("transport error", func(t *testing.T) {
		tr := &failingTransport{}
		d := New(tr, nil, nil, nil)

		r := d.Execute(ctx, DeleteTrack{SongID: "t1"})
		require.False(t, r.OK())
		assert.Equal(t, models.Transport, r.Failure().Kind)
		assert.True(t, r.Failure().Kind.Retryable())
		assert.Equal(t, 1, tr.calls)
	})

	t.Run("invalid parameters never reach the transport", func(t *testing.T) {
		tt := []struct {
			name string
			op   Operation
		}{
			{"empty playlist name", CreatePlaylist{}},
			{"blank playlist id", AddSongs{PlaylistID: " ", SongIDs: []string{"t1"}}},
			{"no songs", AddSongs{PlaylistID: "pl-1"}},
			{"empty song id", AddSongs{PlaylistID: "pl-1", SongIDs: []string{"t1", ""}}},
			{"missing song id", RemoveSong{PlaylistID: "pl-1"}},
			{"rename without name", RenamePlaylist{PlaylistID: "pl-1"}},
			{"upload without file", UploadTrack{}},
			{"metadata without id", ChangeMetadata{Record: models.TrackRecord{"name": "x"}}},
			{"metadata with unknown field", ChangeMetadata{Record: models.TrackRecord{"id": "t1", "lyrics": "la"}}},
			{"metadata with wrong kind", ChangeMetadata{Record: models.TrackRecord{"id": "t1", "year": "1999"}}},
			{"empty query", Search{}},
			{"stream without id", ResolveStreamURL{}},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				tr := &failingTransport{}
				r := New(tr, nil, nil, nil).Execute(ctx, tc.op)
				require.False(t, r.OK())
				assert.Equal(t, models.Invalid, r.Failure().Kind)
				assert.Zero(t, tr.calls)
			})
		}
	})

	t.Run("odd but well-typed values pass", func(t *testing.T) {
		d, _ := newFake(t)
		err := d.ChangeMetadata(ctx, models.TrackRecord{"id": "t1", "year": int64(3001), "rating": int64(-4)})
		assert.NoError(t, err)
	})
}

func TestAddSongsDeduplicates(t *testing.T) {
	params, err := AddSongs{PlaylistID: "pl-1", SongIDs: []string{"a", "b", "a", "c", "b"}}.Params(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, params.Values[services.ParamSongIDs])
}

func TestPlaylistLifecycle(t *testing.T) {
	ctx := context.Background()
	d, fake := newFake(t)

	p, err := d.CreatePlaylist(ctx, "gmx test")
	require.NoError(t, err)
	require.NotEmpty(t, p.ID())
	assert.Equal(t, models.PlaylistCreated, p.State())

	added, err := d.AddSongs(ctx, p.ID(), "t1", "t1", "t2")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, added)

	added, err = d.AddSongs(ctx, p.ID(), "t1")
	require.NoError(t, err)
	assert.Empty(t, added, "re-adding a member must not duplicate it")

	found, err := d.FindPlaylist(ctx, "gmx test")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, found.TrackIDs())

	require.NoError(t, d.RemoveSong(ctx, p.ID(), "t1"))
	found, err = d.PlaylistSongs(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, found.TrackIDs())

	require.NoError(t, d.RenamePlaylist(ctx, p.ID(), "gmx renamed"))
	assert.Equal(t, []string{"gmx renamed"}, fake.PlaylistNames())

	require.NoError(t, d.DeletePlaylist(ctx, p.ID()))

	_, err = d.FindPlaylist(ctx, "gmx renamed")
	assert.ErrorIs(t, err, shared.ErrEntityVanished)

	err = d.DeletePlaylist(ctx, p.ID())
	assert.ErrorIs(t, err, shared.ErrRejected)
}

func TestTrackCalls(t *testing.T) {
	ctx := context.Background()

	t.Run("upload and delete", func(t *testing.T) {
		d, _ := newFake(t)

		ids, err := d.UploadTrack(ctx, tu.NewMemoryFile("music/take.mp3", []byte("ID3")))
		require.NoError(t, err)
		id := ids["music/take.mp3"]
		require.NotEmpty(t, id)

		rec, err := d.FetchTrack(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "take", rec.Text("name"))

		require.NoError(t, d.DeleteTrack(ctx, id))
		_, err = d.FetchTrack(ctx, id)
		assert.ErrorIs(t, err, shared.ErrEntityVanished)
	})

	t.Run("unreadable upload", func(t *testing.T) {
		d, _ := newFake(t)
		_, err := d.UploadTrack(ctx, tu.FailingFile("gone.mp3", errors.New("permission denied")))
		assert.ErrorIs(t, err, shared.ErrTransport)
	})

	t.Run("library numbers are int64", func(t *testing.T) {
		d, _ := newFake(t)
		library, err := d.ListLibrary(ctx)
		require.NoError(t, err)
		require.Len(t, library, 3)
		assert.Equal(t, int64(2001), library[0]["year"])
	})

	t.Run("stream url", func(t *testing.T) {
		d, _ := newFake(t)
		url, err := d.StreamURL(ctx, "t3")
		require.NoError(t, err)
		assert.Regexp(t, `^http`, url)

		_, err = d.StreamURL(ctx, "missing")
		assert.ErrorIs(t, err, shared.ErrRejected)
	})

	t.Run("injected outage", func(t *testing.T) {
		d, fake := newFake(t)
		fake.Inject(services.OpStreamURL, http.StatusServiceUnavailable, "maintenance")
		_, err := d.StreamURL(ctx, "t3")
		assert.ErrorIs(t, err, shared.ErrTransport)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	d, _ := newFake(t)

	res, err := d.Search(ctx, "e", 0)
	require.NoError(t, err)
	assert.Len(t, res.Songs, 3)

	res, err = d.Search(ctx, "Everlong", 5)
	require.NoError(t, err)
	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, "t1", best.Track.ID())

	res, err = d.Search(ctx, "zzzz", 5)
	require.NoError(t, err)
	_, ok = res.Best()
	assert.False(t, ok)
}

func TestRank(t *testing.T) {
	songs := []models.TrackRecord{
		{"id": "a", "name": "Box Car", "artist": "Jawbreaker"},
		{"id": "b", "name": "Heart-Shaped Box", "artist": "Nirvana"},
		{"id": "c", "name": "", "artist": ""},
	}

	ranked := Rank("nirvana heart-shaped box", songs)
	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].Track.ID())
	assert.Equal(t, "c", ranked[2].Track.ID())
	assert.Zero(t, ranked[2].Score)
}

func TestOverHTTP(t *testing.T) {
	ctx := context.Background()
	fake := tu.NewFakeService(nil, 0)
	fake.Seed(tu.NewTrack("t1", "Everlong", "Foo Fighters", "The Colour and the Shape"))

	server := httptest.NewServer(fake.Handler())
	defer server.Close()

	d := New(services.NewHTTPTransport(server.URL, nil, nil, nil), nil, nil, nil)

	p, err := d.CreatePlaylist(ctx, "over http")
	require.NoError(t, err)

	_, err = d.AddSongs(ctx, p.ID(), "t1")
	require.NoError(t, err)

	found, err := d.FindPlaylist(ctx, "over http")
	require.NoError(t, err)
	assert.True(t, found.Contains("t1"))

	require.NoError(t, d.ChangeMetadata(ctx, models.TrackRecord{"id": "t1", "rating": int64(5)}))
	rec, _ := fake.Track("t1")
	assert.Equal(t, int64(5), rec["rating"])
}

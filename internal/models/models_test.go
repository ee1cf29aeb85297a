package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/gmx/internal/shared"
)

func TestFailure(t *testing.T) {
	t.Run("unwraps to the kind sentinel", func(t *testing.T) {
		tt := []struct {
			kind     FailureKind
			sentinel error
		}{
			{Transport, shared.ErrTransport},
			{Rejected, shared.ErrRejected},
			{SessionExpired, shared.ErrSessionExpired},
			{EntityVanished, shared.ErrEntityVanished},
			{UnknownDerivation, shared.ErrUnknownDerivation},
			{DuplicateStepOrder, shared.ErrDuplicateStepOrder},
			{Unsatisfied, shared.ErrUnsatisfied},
			{Invalid, shared.ErrInvalidInput},
		}
		for _, tc := range tt {
			t.Run(tc.kind.String(), func(t *testing.T) {
				f := NewFailure(tc.kind, "op", "detail %d", 1)
				assert.ErrorIs(t, f, tc.sentinel)
				assert.Equal(t, tc.kind, KindOf(fmt.Errorf("wrapped: %w", f)))
				assert.Equal(t, tc.kind, KindOf(tc.sentinel))

				parsed, err := ParseFailureKind(tc.kind.String())
				require.NoError(t, err)
				assert.Equal(t, tc.kind, parsed)
			})
		}
	})

	t.Run("unwraps to the cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		f := WrapFailure(Transport, "search", cause)
		assert.ErrorIs(t, f, cause)
		assert.ErrorIs(t, f, shared.ErrTransport)
		assert.NotErrorIs(t, f, shared.ErrRejected)
		assert.Equal(t, "search: transport: connection reset", f.Error())
	})

	t.Run("matches by kind", func(t *testing.T) {
		f := NewFailure(Rejected, "create", "duplicate")
		assert.ErrorIs(t, f, &Failure{Kind: Rejected})
		assert.NotErrorIs(t, f, &Failure{Kind: Transport})
	})

	t.Run("only transport is retryable", func(t *testing.T) {
		assert.True(t, Transport.Retryable())
		assert.False(t, Rejected.Retryable())
		assert.False(t, SessionExpired.Retryable())
	})

	t.Run("kind of unclassified errors", func(t *testing.T) {
		assert.Equal(t, Transport, KindOf(errors.New("boom")))
		assert.Equal(t, Invalid, KindOf(shared.ErrInvalidFieldType))
	})
}

func TestCallResult(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := Success(json.RawMessage(`{"id":"p1"}`))
		assert.True(t, r.OK())
		assert.Nil(t, r.Failure())
		assert.NoError(t, r.Err())

		var out struct{ ID string }
		require.NoError(t, r.Decode(&out))
		assert.Equal(t, "p1", out.ID)
	})

	t.Run("failure", func(t *testing.T) {
		r := Fail(NewFailure(Rejected, "rename", "no such playlist"))
		assert.False(t, r.OK())
		assert.Nil(t, r.Payload())
		assert.ErrorIs(t, r.Err(), shared.ErrRejected)

		var out map[string]any
		assert.ErrorIs(t, r.Decode(&out), shared.ErrRejected)
	})

	t.Run("bad payload decodes as transport failure", func(t *testing.T) {
		r := Success(json.RawMessage(`[1,2]`))
		var out struct{ ID string }
		assert.ErrorIs(t, r.Decode(&out), shared.ErrTransport)
	})
}

func TestPlaylist(t *testing.T) {
	t.Run("lifecycle", func(t *testing.T) {
		p := NewPlaylist("test playlist")
		assert.Equal(t, PlaylistRequested, p.State())
		assert.ErrorIs(t, p.Rename("x"), shared.ErrInvalidInput)

		require.NoError(t, p.Created("p1"))
		assert.Equal(t, PlaylistCreated, p.State())
		assert.Error(t, p.Created("p2"))

		assert.Equal(t, 1, p.Add("42"))
		assert.Equal(t, PlaylistPopulated, p.State())

		require.NoError(t, p.Rename("modified playlist"))
		assert.Equal(t, "modified playlist", p.Name())

		require.NoError(t, p.Delete())
		assert.Equal(t, PlaylistDeleted, p.State())
		assert.ErrorIs(t, p.Delete(), shared.ErrEntityVanished)
	})

	t.Run("membership is unique", func(t *testing.T) {
		p := RemotePlaylist("p1", "mix", "42", "7")
		assert.Equal(t, 0, p.Add("42", "42"))
		assert.Equal(t, 1, p.Add("9", "9", ""))
		assert.Equal(t, []string{"42", "7", "9"}, p.TrackIDs())

		assert.True(t, p.Remove("42"))
		assert.False(t, p.Remove("42"))
		assert.False(t, p.Contains("42"))
		assert.Equal(t, 2, p.Len())
	})
}

func TestTrackRecord(t *testing.T) {
	rec := TrackRecord{"id": "t1", "name": "A", "rating": 3}

	merged := rec.Merge(TrackRecord{"name": "B"})
	assert.Equal(t, "B", merged.Text("name"))
	assert.Equal(t, "A", rec.Text("name"), "merge must not mutate the receiver")
	assert.Equal(t, []string{"id", "name", "rating"}, rec.Keys())
	assert.Equal(t, TrackRecord{"name": "A"}, rec.Only("name", "missing"))

	m := NewPendingMutation(rec, TrackRecord{"name": "B"}, time.Second)
	require.NoError(t, m.Validate())
	assert.Equal(t, "t1", m.EntityID)
	assert.Equal(t, "B", m.Requested().Text("name"))

	empty := NewPendingMutation(rec, nil, 0)
	assert.ErrorIs(t, empty.Validate(), shared.ErrMissingArgument)
}

func TestRunRecord(t *testing.T) {
	run := NewRunRecord(1, "playlist-lifecycle", 3)
	require.NoError(t, run.Validate())

	run.Start()
	assert.Equal(t, RunRunning, run.Status())

	run.Fail(1, "2_add_song", NewFailure(Rejected, "add", "bad id"))
	assert.Equal(t, RunFailed, run.Status())
	assert.Equal(t, "rejected", run.FailureKind())
	assert.Equal(t, "2_add_song", run.FailedStep())
	assert.NotNil(t, run.CompletedAt())
	assert.GreaterOrEqual(t, run.Duration(), time.Duration(0))

	run.SetStepsSucceeded(4)
	assert.ErrorIs(t, run.Validate(), shared.ErrInvalidArgument)
}

func TestSnapshotRecord(t *testing.T) {
	snap := NewSnapshotRecord(1, "run", SnapshotBefore, TrackRecord{"id": "t1", "rating": 3})
	require.NoError(t, snap.Validate())

	body, err := snap.MarshalBody()
	require.NoError(t, err)

	restored := &SnapshotRecord{}
	require.NoError(t, restored.UnmarshalBody(body))
	assert.Equal(t, "t1", restored.Body().ID())
	assert.Equal(t, int64(3), restored.Body()["rating"])

	bad := NewSnapshotRecord(1, "run", "during", TrackRecord{"id": "t1"})
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidArgument)

	l := NewLeftover(1, "run", "album", "p1", "x")
	assert.ErrorIs(t, l.Validate(), shared.ErrInvalidArgument)
}

package timeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

func testOptions() Options {
	n := 0
	opts := DefaultOptions()
	opts.NewID = func() string {
		n++
		return fmt.Sprintf("clip-%d", n)
	}
	return opts
}

func sources(durations ...float64) []models.MediaSource {
	out := make([]models.MediaSource, len(durations))
	for i, d := range durations {
		out[i] = models.MediaSource{
			MediaFileID: fmt.Sprintf("media-%d", i+1),
			URL:         fmt.Sprintf("https://media.example.com/%d.mp4", i+1),
			Duration:    d,
		}
	}
	return out
}

func assertGapless(t *testing.T, tl *Timeline) {
	t.Helper()
	require.NoError(t, Validate(tl.Clips(), MinClipDuration))
}

func TestAddClips(t *testing.T) {
	tl := New(testOptions())

	added := tl.AddClips(sources(5, 0, 3))
	require.Len(t, added, 3)

	assert.Equal(t, 0.0, added[0].StartTime)
	assert.Equal(t, 5.0, added[1].StartTime)
	assert.Equal(t, DefaultClipDuration, added[1].SourceDuration, "unknown duration falls back to default")
	assert.Equal(t, 13.0, added[2].StartTime)
	assert.Equal(t, 16.0, tl.TotalDuration())
	assert.True(t, added[0].Audio.HasAudio)
	assert.Equal(t, 1.0, added[0].Audio.Volume)
	assertGapless(t, tl)

	t.Run("AppendKeepsExisting", func(t *testing.T) {
		before := tl.Clips()
		tl.AddClips(sources(2))
		after := tl.Clips()
		assert.Equal(t, before, after[:3])
		assert.Equal(t, 16.0, after[3].StartTime)
	})
}

func TestDelete(t *testing.T) {
	tl := New(testOptions())
	tl.AddClips(sources(5, 5, 5))

	require.NoError(t, tl.Delete("clip-2"))
	clips := tl.Clips()
	require.Len(t, clips, 2)
	assert.Equal(t, "clip-3", clips[1].ID)
	assert.Equal(t, 5.0, clips[1].StartTime)
	assertGapless(t, tl)

	err := tl.Delete("missing")
	assert.ErrorIs(t, err, ErrClipNotFound)
	assert.True(t, IsValidation(err))
}

func TestTrim(t *testing.T) {
	t.Run("StartEdgeClampsToMinimum", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(10))

		clip, err := tl.Trim("clip-1", EdgeStart, 50)
		require.NoError(t, err)
		assert.InDelta(t, 9.5, clip.TrimStart, 1e-9)
		assert.InDelta(t, MinClipDuration, EffectiveDuration(clip), 1e-9)
		assert.Equal(t, 0.0, clip.StartTime)
	})

	t.Run("StartEdgeCannotGoNegative", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(10))

		clip, err := tl.Trim("clip-1", EdgeStart, -4)
		require.NoError(t, err)
		assert.Equal(t, 0.0, clip.TrimStart)
	})

	t.Run("EndEdge", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(10, 4))

		clip, err := tl.Trim("clip-1", EdgeEnd, 6)
		require.NoError(t, err)
		assert.InDelta(t, 4.0, clip.TrimEnd, 1e-9)

		next, _ := tl.Clip("clip-2")
		assert.InDelta(t, 6.0, next.StartTime, 1e-9)
		assertGapless(t, tl)

		clip, err = tl.Trim("clip-1", EdgeEnd, -100)
		require.NoError(t, err)
		assert.InDelta(t, MinClipDuration, EffectiveDuration(clip), 1e-9)
	})

	t.Run("PreviewDoesNotMutate", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(10, 4))
		before := tl.Clips()

		draft, err := tl.PreviewTrim("clip-2", EdgeStart, 12)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, draft.TrimStart, 1e-9)
		assert.InDelta(t, 12.0, draft.StartTime, 1e-9)
		assert.Equal(t, before, tl.Clips())
	})

	t.Run("CommitRejectsTooShort", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(2))
		before := tl.Clips()

		err := tl.CommitTrim("clip-1", 1, 0.8)
		assert.ErrorIs(t, err, ErrClipTooShort)
		assert.Equal(t, before, tl.Clips())

		err = tl.CommitTrim("clip-1", -1, 0)
		assert.ErrorIs(t, err, ErrNegativeTrim)
	})

	t.Run("BoundsHoldForAnyTarget", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(6, 3, 9))
		for _, target := range []float64{-10, 0, 0.3, 2.9, 5.5, 7.1, 11, 100} {
			for _, id := range []string{"clip-1", "clip-2", "clip-3"} {
				for _, edge := range []Edge{EdgeStart, EdgeEnd} {
					c, err := tl.Trim(id, edge, target)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, c.TrimStart, 0.0)
					assert.GreaterOrEqual(t, c.TrimEnd, 0.0)
					assert.GreaterOrEqual(t, EffectiveDuration(c), MinClipDuration-1e-9)
					assertGapless(t, tl)
				}
			}
		}
	})
}

func TestSplit(t *testing.T) {
	t.Run("ThreeClipScenario", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(5, 5, 5))

		a, b, err := tl.Split("clip-2", 7.5)
		require.NoError(t, err)

		assert.Equal(t, "clip-2", a.ID)
		assert.InDelta(t, 5.0, a.StartTime, 1e-9)
		assert.InDelta(t, 2.5, a.TrimEnd, 1e-9)
		assert.InDelta(t, 2.5, EffectiveDuration(a), 1e-9)

		assert.Equal(t, "clip-4", b.ID)
		assert.InDelta(t, 7.5, b.StartTime, 1e-9)
		assert.InDelta(t, 2.5, b.TrimStart, 1e-9)
		assert.InDelta(t, 2.5, EffectiveDuration(b), 1e-9)

		clips := tl.Clips()
		require.Len(t, clips, 4)
		assert.Equal(t, []string{"clip-1", "clip-2", "clip-4", "clip-3"},
			[]string{clips[0].ID, clips[1].ID, clips[2].ID, clips[3].ID})
		assert.InDelta(t, 10.0, clips[3].StartTime, 1e-9)
		assert.InDelta(t, 15.0, tl.TotalDuration(), 1e-9)
		assertGapless(t, tl)
	})

	t.Run("TenSecondClips", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(10, 10, 10))
		require.InDelta(t, 30.0, tl.TotalDuration(), 1e-9)

		// 2.5s into the second clip
		_, _, err := tl.Split("clip-2", 12.5)
		require.NoError(t, err)

		clips := tl.Clips()
		require.Len(t, clips, 4)
		durations := make([]float64, len(clips))
		positions := make([]float64, len(clips))
		for i, c := range clips {
			durations[i] = EffectiveDuration(c)
			positions[i] = c.StartTime
		}
		assert.InDeltaSlice(t, []float64{10, 2.5, 7.5, 10}, durations, 1e-9)
		assert.InDeltaSlice(t, []float64{0, 10, 12.5, 20}, positions, 1e-9)
		assertGapless(t, tl)
	})

	t.Run("ConservesDuration", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(12))
		_, err := tl.Trim("clip-1", EdgeStart, 1.5)
		require.NoError(t, err)
		_, err = tl.Trim("clip-1", EdgeEnd, 9)
		require.NoError(t, err)
		orig, _ := tl.Clip("clip-1")

		a, b, err := tl.Split("clip-1", 4.2)
		require.NoError(t, err)
		assert.InDelta(t, EffectiveDuration(orig), EffectiveDuration(a)+EffectiveDuration(b), 1e-9)
		assert.InDelta(t, orig.TrimStart, a.TrimStart, 1e-9)
		assert.InDelta(t, orig.TrimEnd, b.TrimEnd, 1e-9)
		assert.InDelta(t, a.SourceDuration-a.TrimEnd, b.TrimStart, 1e-9)
	})

	t.Run("RejectsEdges", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(5))
		before := tl.Clips()

		_, _, err := tl.Split("clip-1", 0.05)
		assert.ErrorIs(t, err, ErrSplitAtEdge)
		assert.Equal(t, "cannot split at clip edge", err.Error())

		_, _, err = tl.Split("clip-1", 4.95)
		assert.ErrorIs(t, err, ErrSplitAtEdge)

		_, _, err = tl.Split("clip-1", 0.3)
		assert.ErrorIs(t, err, ErrClipTooShort)

		_, _, err = tl.Split("clip-1", 9)
		assert.ErrorIs(t, err, ErrSplitOutsideClip)

		assert.Equal(t, before, tl.Clips())
	})

	t.Run("TransitionMovesToSecondPiece", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(6, 6))
		_, err := tl.SetTransition("clip-1", models.TransitionFade, 1)
		require.NoError(t, err)

		a, b, err := tl.Split("clip-1", 3)
		require.NoError(t, err)
		assert.Nil(t, a.TransitionOut)
		require.NotNil(t, b.TransitionOut)
		assert.Equal(t, models.TransitionFade, b.TransitionOut.Type)
	})
}

func TestReorder(t *testing.T) {
	t.Run("DropIndexFirstMidpointWins", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(4, 4, 4))

		idx, ok := tl.DropIndex("clip-3", 1)
		assert.True(t, ok)
		assert.Equal(t, 0, idx)

		idx, ok = tl.DropIndex("clip-1", 7)
		assert.True(t, ok)
		assert.Equal(t, 1, idx)

		idx, ok = tl.DropIndex("clip-1", 100)
		assert.True(t, ok)
		assert.Equal(t, 2, idx)
	})

	t.Run("CommitSplices", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(2, 3, 4))

		idx, ok := tl.DropIndex("clip-3", 0.5)
		require.NoError(t, tl.CommitReorder("clip-3", idx, ok))

		clips := tl.Clips()
		assert.Equal(t, "clip-3", clips[0].ID)
		assert.Equal(t, "clip-1", clips[1].ID)
		assert.InDelta(t, 4.0, clips[1].StartTime, 1e-9)
		assertGapless(t, tl)
	})

	t.Run("SnapBackIsIdempotent", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(2, 3, 4))
		before := tl.Clips()

		require.NoError(t, tl.CommitReorder("clip-2", -1, false))
		assert.Equal(t, before, tl.Clips())
		require.NoError(t, tl.CommitReorder("clip-2", -1, false))
		assert.Equal(t, before, tl.Clips())
	})

	t.Run("SingleClipHasNoTarget", func(t *testing.T) {
		tl := New(testOptions())
		tl.AddClips(sources(2))
		_, ok := tl.DropIndex("clip-1", 10)
		assert.False(t, ok)
	})
}

func TestTransitions(t *testing.T) {
	tl := New(testOptions())
	tl.AddClips(sources(3, 10, 10))

	tr, err := tl.SetTransition("clip-1", models.TransitionDissolve, 5)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, tr.Duration, 1e-9, "capped to half of the shorter clip")

	tr, err = tl.SetTransition("clip-2", models.TransitionWipeLeft, 5)
	require.NoError(t, err)
	assert.InDelta(t, MaxTransitionDuration, tr.Duration, 1e-9)

	_, err = tl.SetTransition("clip-3", models.TransitionFade, 1)
	assert.ErrorIs(t, err, ErrNoSuccessor)

	_, err = tl.SetTransition("clip-1", "spin", 1)
	assert.ErrorIs(t, err, ErrUnknownTransition)

	tr, err = tl.SetTransition("clip-1", models.TransitionNone, 0)
	require.NoError(t, err)
	assert.Nil(t, tr)

	t.Run("DeleteDropsTransitionFromNewLast", func(t *testing.T) {
		require.NoError(t, tl.Delete("clip-3"))
		last, _ := tl.Clip("clip-2")
		assert.Nil(t, last.TransitionOut)
	})
}

func TestClipAudio(t *testing.T) {
	tl := New(testOptions())
	tl.AddClips(sources(3))

	require.NoError(t, tl.SetClipVolume("clip-1", 0.4))
	assert.ErrorIs(t, tl.SetClipVolume("clip-1", 1.4), ErrInvalidVolume)

	muted, err := tl.ToggleClipMute("clip-1")
	require.NoError(t, err)
	assert.True(t, muted)

	c, _ := tl.Clip("clip-1")
	assert.Equal(t, 0.4, c.Audio.Volume)
	assert.True(t, c.Audio.Muted)
}

func TestFromClipsRepairs(t *testing.T) {
	tl := FromClips([]models.Clip{
		{ID: "b", SourceDuration: 4, StartTime: 9},
		{ID: "a", SourceDuration: 3, StartTime: 2, TrimStart: 5},
	}, testOptions())

	clips := tl.Clips()
	require.Len(t, clips, 2)
	assert.Equal(t, "a", clips[0].ID)
	assert.InDelta(t, 2.5, clips[0].TrimStart, 1e-9)
	assert.InDelta(t, 0.5, clips[1].StartTime, 1e-9)
	assertGapless(t, tl)
}

func TestActiveClipAt(t *testing.T) {
	tl := New(testOptions())
	tl.AddClips(sources(2, 3))

	c, i, ok := ActiveClipAt(tl.Clips(), 2)
	require.True(t, ok)
	assert.Equal(t, "clip-2", c.ID)
	assert.Equal(t, 1, i)

	_, _, ok = ActiveClipAt(tl.Clips(), 5)
	assert.False(t, ok, "end is exclusive")
}

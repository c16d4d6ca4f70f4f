package occupancy

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"room-status-backend/internal/db"
	"room-status-backend/internal/model"
	"room-status-backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	// One named in-memory database per test so connection pooling does not
	// hand gorm a blank database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return store.NewGormStore(gormDB)
}

func seedRoom(t *testing.T, s store.Store, number string, score int) {
	t.Helper()
	require.NoError(t, s.SaveRoom(context.Background(), &model.Room{
		Number: number,
		Type:   model.RoomTypeStudio,
		Score:  score,
	}))
}

func TestTrackerResync(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101", 8)
	seedRoom(t, s, "102", 5)

	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertUse(ctx, &model.Use{
		RoomNumber:   "101",
		UserFullName: "Alice Martin",
		EntryTime:    now.Add(-30 * time.Minute),
		MaxDuration:  120,
	}))

	tracker := NewTracker(s, Options{Clock: func() time.Time { return now }})
	tracker.Resync(ctx)

	views := tracker.Snapshot()
	require.Len(t, views, 2)

	v101, ok := tracker.View("101")
	require.True(t, ok)
	assert.Equal(t, StateOccupied, v101.State)
	require.NotNil(t, v101.TimeRemaining)
	assert.Equal(t, 90*time.Minute, *v101.TimeRemaining)
	require.NotNil(t, v101.CurrentUse)
	assert.Equal(t, "Alice Martin", v101.CurrentUse.UserFullName)

	v102, ok := tracker.View("102")
	require.True(t, ok)
	assert.Equal(t, StateFree, v102.State)
	assert.Nil(t, v102.TimeRemaining)
	assert.Nil(t, v102.CurrentUse)
}

func TestTrackerTickMarksKickableOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101", 8)

	entry := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertUse(ctx, &model.Use{
		RoomNumber:   "101",
		UserFullName: "Alice Martin",
		EntryTime:    entry,
		MaxDuration:  60,
	}))

	now := entry.Add(30 * time.Minute)
	tracker := NewTracker(s, Options{Clock: func() time.Time { return now }})
	tracker.Resync(ctx)

	v, _ := tracker.View("101")
	require.Equal(t, StateOccupied, v.State)

	// Cross the planned end and tick twice in quick succession.
	now = entry.Add(61 * time.Minute)
	tracker.tick(ctx)
	tracker.tick(ctx)

	v, _ = tracker.View("101")
	assert.Equal(t, StateKickable, v.State)
	require.NotNil(t, v.TimeRemaining)
	assert.Equal(t, -time.Minute, *v.TimeRemaining)

	// The activation timestamp is written fire-and-forget; wait for it and
	// then verify exactly one value was persisted.
	assert.Eventually(t, func() bool {
		use, err := s.GetOpenUse(ctx, "101")
		return err == nil && use.KickableActivationTime != nil
	}, 2*time.Second, 10*time.Millisecond)

	use, err := s.GetOpenUse(ctx, "101")
	require.NoError(t, err)
	require.NotNil(t, use.KickableActivationTime)
	assert.Equal(t, now.Unix(), use.KickableActivationTime.Unix())

	// A later attempt is a no-op: first write wins.
	wrote, err := s.MarkKickable(ctx, use.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, wrote)

	after, err := s.GetOpenUse(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, use.KickableActivationTime.Unix(), after.KickableActivationTime.Unix())
}

func TestTrackerTickSkipsFreeAndUnavailable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101", 8)
	seedRoom(t, s, "102", 5)

	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertUse(ctx, &model.Use{
		RoomNumber:   "102",
		UserFullName: "UNAVAILABLE",
		EntryTime:    now.Add(-10 * time.Hour),
		MaxDuration:  0,
	}))

	tracker := NewTracker(s, Options{Clock: func() time.Time { return now }})
	tracker.Resync(ctx)

	snapshots := 0
	tracker.opts.OnSnapshot = func([]RoomView) { snapshots++ }

	tracker.tick(ctx)
	// Nothing tracked is occupied or kickable, so the tick must not replace
	// the snapshot.
	assert.Zero(t, snapshots)

	v, _ := tracker.View("102")
	assert.Equal(t, StateUnavailable, v.State)
}

func TestTrackerResyncKeepsSnapshotOnReadFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101", 8)

	tracker := NewTracker(s, Options{})
	tracker.Resync(ctx)
	require.Len(t, tracker.Snapshot(), 1)

	// Break the underlying database; the previous snapshot must survive.
	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	tracker.Resync(ctx)
	assert.Len(t, tracker.Snapshot(), 1)
}

func TestTrackerStartStop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101", 8)

	tracker := NewTracker(s, Options{TickInterval: 10 * time.Millisecond})
	tracker.Start(ctx)
	tracker.Start(ctx) // no-op while running

	// A write must reach the tracker through the change feed.
	require.NoError(t, s.InsertUse(ctx, &model.Use{
		RoomNumber:   "101",
		UserFullName: "Alice Martin",
		EntryTime:    time.Now().UTC(),
		MaxDuration:  120,
	}))
	assert.Eventually(t, func() bool {
		v, ok := tracker.View("101")
		return ok && v.State == StateOccupied
	}, 2*time.Second, 10*time.Millisecond)

	tracker.Stop()
	tracker.Stop() // safe twice
}

func TestTrackerTransitionCallback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101", 8)

	entry := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertUse(ctx, &model.Use{
		RoomNumber:   "101",
		UserFullName: "Alice Martin",
		EntryTime:    entry,
		MaxDuration:  60,
	}))

	now := entry.Add(30 * time.Minute)
	var transitions []State
	tracker := NewTracker(s, Options{
		Clock:        func() time.Time { return now },
		OnTransition: func(room string, from, to State) { transitions = append(transitions, to) },
	})
	tracker.Resync(ctx)

	now = entry.Add(2 * time.Hour)
	tracker.tick(ctx)

	require.Len(t, transitions, 1)
	assert.Equal(t, StateKickable, transitions[0])
}

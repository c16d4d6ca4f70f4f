package store

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

	"room-status-backend/internal/model"
)

// A helper that opens a fresh in-memory database with the full schema.
func newTestStore(t *testing.T) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(
		&model.Room{},
		&model.Use{},
		&model.User{},
		&model.AccessGrant{},
		&model.Ban{},
		&model.PushSubscription{},
	))
	return NewGormStore(gormDB)
}

func seedRoom(t *testing.T, s Store, number string) {
	t.Helper()
	require.NoError(t, s.SaveRoom(context.Background(), &model.Room{
		Number: number,
		Type:   model.RoomTypeStudio,
		Score:  5,
	}))
}

func openUse(roomNumber string, entry time.Time, maxDuration int) *model.Use {
	return &model.Use{
		RoomNumber:   roomNumber,
		UserFullName: "Alice Martin",
		EntryTime:    entry,
		MaxDuration:  maxDuration,
	}
}

func TestInsertUseRefusesSecondOpenRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101")

	now := time.Now().UTC()
	require.NoError(t, s.InsertUse(ctx, openUse("101", now, 120)))

	err := s.InsertUse(ctx, openUse("101", now, 120))
	assert.ErrorIs(t, err, ErrRoomOccupied)

	uses, err := s.ListOpenUses(ctx)
	require.NoError(t, err)
	assert.Len(t, uses, 1)
}

func TestCloseUseIsConditional(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101")

	use := openUse("101", time.Now().UTC(), 120)
	require.NoError(t, s.InsertUse(ctx, use))

	exit := time.Now().UTC()
	require.NoError(t, s.CloseUse(ctx, use.ID, exit))

	// Closing an already closed record must fail loudly, not double-close.
	err := s.CloseUse(ctx, use.ID, exit.Add(time.Hour))
	assert.ErrorIs(t, err, ErrUseConflict)

	_, err = s.GetOpenUse(ctx, "101")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceUseIsTransactional(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101")

	prev := openUse("101", time.Now().UTC().Add(-3*time.Hour), 120)
	require.NoError(t, s.InsertUse(ctx, prev))

	exit := time.Now().UTC()
	next := openUse("101", exit, 120)
	next.UserFullName = "Bob Tremblay"
	require.NoError(t, s.ReplaceUse(ctx, prev.ID, exit, next))

	current, err := s.GetOpenUse(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "Bob Tremblay", current.UserFullName)

	// The displaced record carries the assignment timestamp as its exit.
	var old model.Use
	require.NoError(t, s.DB().First(&old, prev.ID).Error)
	require.NotNil(t, old.ExitTime)
	assert.Equal(t, exit.Unix(), old.ExitTime.Unix())

	// Replacing a record that is no longer open is a conflict and must not
	// open another record.
	err = s.ReplaceUse(ctx, prev.ID, exit, openUse("101", exit, 120))
	assert.ErrorIs(t, err, ErrUseConflict)

	uses, err := s.ListOpenUses(ctx)
	require.NoError(t, err)
	assert.Len(t, uses, 1)
}

func TestMarkKickableFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101")

	use := openUse("101", time.Now().UTC().Add(-3*time.Hour), 60)
	require.NoError(t, s.InsertUse(ctx, use))

	first := time.Now().UTC()
	wrote, err := s.MarkKickable(ctx, use.ID, first)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = s.MarkKickable(ctx, use.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, wrote)

	current, err := s.GetOpenUse(ctx, "101")
	require.NoError(t, err)
	require.NotNil(t, current.KickableActivationTime)
	assert.Equal(t, first.Unix(), current.KickableActivationTime.Unix())
}

func TestFindActiveBan(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	reason := "damage"
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)

	// Expired ban: never found.
	require.NoError(t, s.AddBan(ctx, &model.Ban{UserID: 1, ExpiresAt: &past, CreatedAt: now.Add(-48 * time.Hour)}))
	_, err := s.FindActiveBan(ctx, 1, now)
	assert.ErrorIs(t, err, ErrNotFound)

	// Several live bans: the earliest-created one governs.
	require.NoError(t, s.AddBan(ctx, &model.Ban{UserID: 2, Reason: &reason, ExpiresAt: nil, CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, s.AddBan(ctx, &model.Ban{UserID: 2, ExpiresAt: &future, CreatedAt: now.Add(-time.Hour)}))

	ban, err := s.FindActiveBan(ctx, 2, now)
	require.NoError(t, err)
	require.NotNil(t, ban.Reason)
	assert.Equal(t, "damage", *ban.Reason)
	assert.Nil(t, ban.ExpiresAt)
}

func TestFindAccessGrant(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)

	require.NoError(t, s.AddAccessGrant(ctx, &model.AccessGrant{UserID: 1, RoomNumber: "220", ExpiresAt: &past}))
	_, err := s.FindAccessGrant(ctx, 1, "220", now)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.AddAccessGrant(ctx, &model.AccessGrant{UserID: 2, RoomNumber: "220", ExpiresAt: &future}))
	grant, err := s.FindAccessGrant(ctx, 2, "220", now)
	require.NoError(t, err)
	assert.Equal(t, "220", grant.RoomNumber)

	// Grant for another room does not leak.
	_, err = s.FindAccessGrant(ctx, 2, "221", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotifierPublishesOnUseWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "101")

	ch := s.Changes().Subscribe()
	defer s.Changes().Unsubscribe(ch)

	use := openUse("101", time.Now().UTC(), 120)
	require.NoError(t, s.InsertUse(ctx, use))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification after InsertUse")
	}

	require.NoError(t, s.CloseUse(ctx, use.ID, time.Now().UTC()))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification after CloseUse")
	}
}

func TestNotifierCoalescesAndUnsubscribes(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()

	// Publishing twice with nobody draining leaves one pending signal and
	// never blocks.
	n.Publish()
	n.Publish()
	<-ch
	select {
	case <-ch:
		t.Fatal("expected signals to coalesce")
	default:
	}

	n.Unsubscribe(ch)
	n.Unsubscribe(ch) // no-op
	n.Publish()
	select {
	case <-ch:
		t.Fatal("unsubscribed channel must not receive")
	default:
	}
}

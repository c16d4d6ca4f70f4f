package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"room-status-backend/internal/model"
	"room-status-backend/internal/store"
)

var (
	// ErrNotAuthorized is returned when a restricted room has no valid
	// access grant for the identity.
	ErrNotAuthorized = errors.New("access: user is not authorized for this room")
	// ErrCannotVerify is returned when a restricted room is requested for an
	// identity that has no registered user behind it. Distinct from
	// ErrNotAuthorized: the rights could not be checked, not checked and
	// found missing.
	ErrCannotVerify = errors.New("access: rights cannot be verified for an unregistered user")
)

// BanStatus is the outcome of a ban check.
type BanStatus struct {
	Banned    bool
	Reason    *string
	ExpiresAt *time.Time
}

// Message renders the user-visible rejection text for an active ban.
func (b BanStatus) Message() string {
	if !b.Banned {
		return ""
	}
	msg := "user is banned permanently"
	if b.ExpiresAt != nil {
		msg = fmt.Sprintf("user is banned until %s", b.ExpiresAt.Format("2006-01-02 15:04"))
	}
	if b.Reason != nil && *b.Reason != "" {
		msg += fmt.Sprintf(" (reason: %s)", *b.Reason)
	}
	return msg
}

// Evaluator answers the two questions asked before every assignment: is the
// identity banned anywhere, and may it enter this particular room. Both are
// read-only store queries.
type Evaluator struct {
	store store.Store
}

// NewEvaluator creates an evaluator over the given store.
func NewEvaluator(s store.Store) *Evaluator {
	return &Evaluator{store: s}
}

// CheckBan looks up the governing ban for the identity. Unregistered
// identities cannot carry bans, so no query is issued for them.
func (e *Evaluator) CheckBan(ctx context.Context, id Identity, now time.Time) (BanStatus, error) {
	userID, known := id.UserID()
	if !known {
		return BanStatus{}, nil
	}
	ban, err := e.store.FindActiveBan(ctx, userID, now)
	if errors.Is(err, store.ErrNotFound) {
		return BanStatus{}, nil
	}
	if err != nil {
		return BanStatus{}, err
	}
	return BanStatus{Banned: true, Reason: ban.Reason, ExpiresAt: ban.ExpiresAt}, nil
}

// CheckAccess decides whether the identity may enter the room. Rooms without
// the restricted flag never consult grants and always permit. For restricted
// rooms, an unregistered identity yields ErrCannotVerify and a registered
// one without a live grant yields ErrNotAuthorized.
func (e *Evaluator) CheckAccess(ctx context.Context, id Identity, room *model.Room, now time.Time) error {
	if !room.IsRestricted {
		return nil
	}
	userID, known := id.UserID()
	if !known {
		return ErrCannotVerify
	}
	_, err := e.store.FindAccessGrant(ctx, userID, room.Number, now)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotAuthorized
	}
	if err != nil {
		return err
	}
	return nil
}

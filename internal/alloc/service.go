package alloc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"room-status-backend/config"
	"room-status-backend/internal/access"
	"room-status-backend/internal/model"
	"room-status-backend/internal/occupancy"
	"room-status-backend/internal/store"
)

// Rejections are part of normal business flow: callers match on these with
// errors.Is and render the wrapped message, nothing is retried.
var (
	ErrNoIdentity         = errors.New("alloc: nobody has been scanned")
	ErrInvalidDuration    = errors.New("alloc: invalid duration")
	ErrBanned             = errors.New("alloc: user is banned")
	ErrRoomOccupied       = errors.New("alloc: room already occupied")
	ErrDisplaceNotAllowed = errors.New("alloc: displacing a current occupant is not allowed")
	ErrNoOpenUse          = errors.New("alloc: room has no current occupant")
)

// The display name recorded for administrative blocks.
const unavailableLabel = "unavailable"

// Service executes checked assignments: every write is gated through the
// ban check, then the per-room access check, then a single transactional
// close+open against the store.
type Service struct {
	store  store.Store
	access *access.Evaluator
	cfg    config.AllocationConfig
	clock  func() time.Time
}

// NewService creates the allocation service. The clock is injectable for
// tests; pass nil for wall time.
func NewService(s store.Store, ev *access.Evaluator, cfg config.AllocationConfig, clock func() time.Time) *Service {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: s, access: ev, cfg: cfg, clock: clock}
}

// DefaultDuration returns the planned duration applied when the caller does
// not supply one.
func (s *Service) DefaultDuration() int {
	return s.cfg.DefaultDurationMinutes
}

// Assign checks the identity in to the given room. With replace set, a
// current occupant's record is closed in the same transaction; whether an
// occupant who still has time left may be displaced is a policy setting.
func (s *Service) Assign(ctx context.Context, roomNumber string, id access.Identity, durationMinutes int, replace bool) error {
	if !id.Valid() {
		return ErrNoIdentity
	}
	if durationMinutes < 0 {
		return fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMinutes)
	}
	if durationMinutes == 0 {
		durationMinutes = s.cfg.DefaultDurationMinutes
	}

	now := s.clock()

	// Ban first: it is identity-wide and cheaper to explain. Both checks
	// must come back clean before any write.
	ban, err := s.access.CheckBan(ctx, id, now)
	if err != nil {
		return fmt.Errorf("ban check failed: %w", err)
	}
	if ban.Banned {
		return fmt.Errorf("%w: %s", ErrBanned, ban.Message())
	}

	room, err := s.store.GetRoom(ctx, roomNumber)
	if err != nil {
		return err
	}
	if err := s.access.CheckAccess(ctx, id, room, now); err != nil {
		return err
	}

	next := s.newUse(room.Number, id, durationMinutes, now)
	return s.open(ctx, room.Number, next, replace, now)
}

// Exit closes the room's current use record.
func (s *Service) Exit(ctx context.Context, roomNumber string) error {
	use, err := s.store.GetOpenUse(ctx, roomNumber)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoOpenUse
	}
	if err != nil {
		return err
	}
	return s.store.CloseUse(ctx, use.ID, s.clock())
}

// MakeUnavailable places an administrative block on the room: an unbounded
// use that keeps the room out of allocation until staff close it. The label
// is shown on the boards in place of an occupant name; when empty, the
// generic uppercase label is used.
func (s *Service) MakeUnavailable(ctx context.Context, roomNumber, label string, replace bool) error {
	if _, err := s.store.GetRoom(ctx, roomNumber); err != nil {
		return err
	}
	if strings.TrimSpace(label) == "" {
		label = strings.ToUpper(unavailableLabel)
	}
	now := s.clock()
	use := &model.Use{
		RoomNumber:   roomNumber,
		UserFullName: label,
		EntryTime:    now,
		MaxDuration:  0,
	}
	return s.open(ctx, roomNumber, use, replace, now)
}

// Extend resets the current occupant's remaining time to the default
// duration: the new planned duration is the elapsed time plus the default.
func (s *Service) Extend(ctx context.Context, roomNumber string) error {
	use, err := s.store.GetOpenUse(ctx, roomNumber)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoOpenUse
	}
	if err != nil {
		return err
	}
	elapsed := int(s.clock().Sub(use.EntryTime).Minutes())
	if elapsed < 0 {
		elapsed = 0
	}
	return s.store.SetUseDuration(ctx, use.ID, elapsed+s.cfg.DefaultDurationMinutes)
}

func (s *Service) newUse(roomNumber string, id access.Identity, durationMinutes int, now time.Time) *model.Use {
	use := &model.Use{
		RoomNumber:   roomNumber,
		UserFullName: id.DisplayName(),
		EntryTime:    now,
		MaxDuration:  durationMinutes,
	}
	if userID, known := id.UserID(); known {
		use.UserID = &userID
	}
	return use
}

// open performs the close+open sequence. The two writes run in one store
// transaction; a conflict means another client raced us and is reported,
// not retried; the tracker self-corrects on the next notification.
func (s *Service) open(ctx context.Context, roomNumber string, next *model.Use, replace bool, now time.Time) error {
	prev, err := s.store.GetOpenUse(ctx, roomNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if prev == nil {
		if err := s.store.InsertUse(ctx, next); err != nil {
			if errors.Is(err, store.ErrRoomOccupied) {
				// Someone checked in between our read and the insert.
				return fmt.Errorf("%w: %s", ErrRoomOccupied, roomNumber)
			}
			return err
		}
		return nil
	}

	if !replace {
		return fmt.Errorf("%w: %s", ErrRoomOccupied, roomNumber)
	}
	state, _ := occupancy.ComputeState(prev, now)
	if state == occupancy.StateOccupied && !s.cfg.AllowDisplaceOccupied {
		return fmt.Errorf("%w: room %s occupant still has time left", ErrDisplaceNotAllowed, roomNumber)
	}

	if err := s.store.ReplaceUse(ctx, prev.ID, now, next); err != nil {
		if errors.Is(err, store.ErrUseConflict) {
			log.Printf("alloc: replace conflict in room %s: open record changed underneath use %d", roomNumber, prev.ID)
			return fmt.Errorf("%w: %s", ErrRoomOccupied, roomNumber)
		}
		return err
	}
	return nil
}

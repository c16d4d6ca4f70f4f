package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"room-status-backend/internal/model"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrUseConflict is returned when a conditional write against a use
	// record fails because another client already changed it.
	ErrUseConflict = errors.New("store: use record changed concurrently")
	// ErrRoomOccupied is returned when inserting a use for a room that
	// already has an open record and no replacement was requested.
	ErrRoomOccupied = errors.New("store: room already has an open use")
)

// Store defines the interface for all database operations. The occupancy
// engine only writes use records through InsertUse, CloseUse, ReplaceUse and
// MarkKickable; every use-table write publishes a change notification.
type Store interface {
	DB() *gorm.DB
	Changes() *Notifier

	ListRooms(ctx context.Context) ([]model.Room, error)
	GetRoom(ctx context.Context, number string) (*model.Room, error)
	SaveRoom(ctx context.Context, room *model.Room) error

	ListOpenUses(ctx context.Context) (map[string]model.Use, error)
	GetOpenUse(ctx context.Context, roomNumber string) (*model.Use, error)
	InsertUse(ctx context.Context, use *model.Use) error
	CloseUse(ctx context.Context, id int64, exitTime time.Time) error
	ReplaceUse(ctx context.Context, prevID int64, exitTime time.Time, next *model.Use) error
	MarkKickable(ctx context.Context, id int64, at time.Time) (bool, error)
	SetUseDuration(ctx context.Context, id int64, minutes int) error
	ListLatestUses(ctx context.Context, limit int) ([]model.Use, error)

	FindUserByBarcode(ctx context.Context, barcode string) (*model.User, error)
	FindActiveBan(ctx context.Context, userID int64, now time.Time) (*model.Ban, error)
	FindAccessGrant(ctx context.Context, userID int64, roomNumber string, now time.Time) (*model.AccessGrant, error)

	ListAccessGrants(ctx context.Context, userID int64) ([]model.AccessGrant, error)
	AddAccessGrant(ctx context.Context, grant *model.AccessGrant) error
	DeleteAccessGrant(ctx context.Context, id int64) error
	AddBan(ctx context.Context, ban *model.Ban) error
	DeleteBan(ctx context.Context, id int64) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db      *gorm.DB
	changes *Notifier
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, changes: NewNotifier()}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

// Changes returns the notifier fired after every use-table write. Payloads
// are deliberately empty: consumers must re-read authoritative state rather
// than trust anything carried by the notification.
func (s *gormStore) Changes() *Notifier { return s.changes }

func (s *gormStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).Order("number").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (s *gormStore) GetRoom(ctx context.Context, number string) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).First(&room, "number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", number, err)
	}
	return &room, nil
}

func (s *gormStore) SaveRoom(ctx context.Context, room *model.Room) error {
	if err := s.db.WithContext(ctx).Save(room).Error; err != nil {
		return fmt.Errorf("failed to save room %s: %w", room.Number, err)
	}
	return nil
}

// ListOpenUses returns the authoritative "current record per room"
// projection: every use with no exit time, keyed by room number.
func (s *gormStore) ListOpenUses(ctx context.Context) (map[string]model.Use, error) {
	var uses []model.Use
	if err := s.db.WithContext(ctx).Where("exit_time IS NULL").Find(&uses).Error; err != nil {
		return nil, fmt.Errorf("failed to list open uses: %w", err)
	}
	useMap := make(map[string]model.Use, len(uses))
	for _, u := range uses {
		useMap[u.RoomNumber] = u
	}
	return useMap, nil
}

func (s *gormStore) GetOpenUse(ctx context.Context, roomNumber string) (*model.Use, error) {
	var use model.Use
	err := s.db.WithContext(ctx).
		Where("room_number = ? AND exit_time IS NULL", roomNumber).
		First(&use).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open use for room %s: %w", roomNumber, err)
	}
	return &use, nil
}

// InsertUse opens a new use record. It refuses to create a second open
// record for the same room; displacement goes through ReplaceUse.
func (s *gormStore) InsertUse(ctx context.Context, use *model.Use) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Use{}).
			Where("room_number = ? AND exit_time IS NULL", use.RoomNumber).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrRoomOccupied
		}
		return tx.Create(use).Error
	})
	if err != nil {
		if errors.Is(err, ErrRoomOccupied) {
			return err
		}
		return fmt.Errorf("failed to insert use for room %s: %w", use.RoomNumber, err)
	}
	s.changes.Publish()
	return nil
}

// CloseUse sets the exit time of an open use. The update is conditional on
// the record still being open so that two clients closing the same record
// fail loudly instead of silently double-closing.
func (s *gormStore) CloseUse(ctx context.Context, id int64, exitTime time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Use{}).
		Where("id = ? AND exit_time IS NULL", id).
		Update("exit_time", exitTime)
	if res.Error != nil {
		return fmt.Errorf("failed to close use %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUseConflict
	}
	s.changes.Publish()
	return nil
}

// ReplaceUse closes the previous occupant's record and opens the next one as
// a single transaction, so a failed open never leaves the room incorrectly
// free. The close is conditional on prevID still being the open record.
func (s *gormStore) ReplaceUse(ctx context.Context, prevID int64, exitTime time.Time, next *model.Use) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Use{}).
			Where("id = ? AND exit_time IS NULL", prevID).
			Update("exit_time", exitTime)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUseConflict
		}
		return tx.Create(next).Error
	})
	if err != nil {
		if errors.Is(err, ErrUseConflict) {
			return err
		}
		return fmt.Errorf("failed to replace use %d in room %s: %w", prevID, next.RoomNumber, err)
	}
	s.changes.Publish()
	return nil
}

// MarkKickable records the instant a use ran over its planned duration. The
// write is first-write-wins: it only applies while the timestamp is still
// null, so duplicate ticks observing the same transition are no-ops. Returns
// whether this call performed the write.
func (s *gormStore) MarkKickable(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Use{}).
		Where("id = ? AND exit_time IS NULL AND kickable_activation_time IS NULL", id).
		Update("kickable_activation_time", at)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark use %d kickable: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	s.changes.Publish()
	return true, nil
}

func (s *gormStore) SetUseDuration(ctx context.Context, id int64, minutes int) error {
	res := s.db.WithContext(ctx).Model(&model.Use{}).
		Where("id = ? AND exit_time IS NULL", id).
		Update("max_duration", minutes)
	if res.Error != nil {
		return fmt.Errorf("failed to set duration on use %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUseConflict
	}
	s.changes.Publish()
	return nil
}

func (s *gormStore) ListLatestUses(ctx context.Context, limit int) ([]model.Use, error) {
	var uses []model.Use
	if err := s.db.WithContext(ctx).
		Order("entry_time DESC").
		Limit(limit).
		Find(&uses).Error; err != nil {
		return nil, fmt.Errorf("failed to list latest uses: %w", err)
	}
	return uses, nil
}

func (s *gormStore) FindUserByBarcode(ctx context.Context, barcode string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "barcode = ?", barcode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by barcode: %w", err)
	}
	return &user, nil
}

// FindActiveBan returns the governing ban for a user: the earliest-created
// one among those not yet expired, or ErrNotFound.
func (s *gormStore) FindActiveBan(ctx context.Context, userID int64, now time.Time) (*model.Ban, error) {
	var ban model.Ban
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", userID, now).
		Order("created_at").
		First(&ban).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ban for user %d: %w", userID, err)
	}
	return &ban, nil
}

func (s *gormStore) FindAccessGrant(ctx context.Context, userID int64, roomNumber string, now time.Time) (*model.AccessGrant, error) {
	var grant model.AccessGrant
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND room_number = ? AND (expires_at IS NULL OR expires_at > ?)", userID, roomNumber, now).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find access grant for user %d room %s: %w", userID, roomNumber, err)
	}
	return &grant, nil
}

func (s *gormStore) ListAccessGrants(ctx context.Context, userID int64) ([]model.AccessGrant, error) {
	var grants []model.AccessGrant
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("room_number").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to list access grants for user %d: %w", userID, err)
	}
	return grants, nil
}

func (s *gormStore) AddAccessGrant(ctx context.Context, grant *model.AccessGrant) error {
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return fmt.Errorf("failed to add access grant: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteAccessGrant(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.AccessGrant{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete access grant %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) AddBan(ctx context.Context, ban *model.Ban) error {
	if ban.CreatedAt.IsZero() {
		ban.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(ban).Error; err != nil {
		return fmt.Errorf("failed to add ban: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteBan(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Ban{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete ban %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

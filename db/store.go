package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Horizonnns/vue-chat-server/models"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert would violate a uniqueness rule.
var ErrDuplicate = errors.New("already exists")

// Store is the persistence gateway used by the chat core and the auth
// handlers. REST CRUD handlers query gorm directly; the core goes through
// this narrower surface so it can be exercised against fakes.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// translateError maps gorm errors onto the package sentinels so callers
// never depend on driver-level error types. The unique-index path covers
// concurrent inserts that no pre-check can exclude.
func translateError(err error, wrap string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return fmt.Errorf("%s: %w", wrap, err)
	}
}

// CreateUser inserts a new account. Phone numbers are unique; a taken
// phone yields ErrDuplicate, including when two registrations race.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.LastSeen.IsZero() {
		user.LastSeen = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err, "failed to create user")
	}
	return nil
}

func (s *Store) UserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, translateError(err, "failed to fetch user")
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err, "failed to fetch user")
	}
	return &user, nil
}

// UserExists reports whether a user id is registered. Used by the message
// router to validate recipients before persisting anything.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}

// SaveMessage durably writes a direct message. Called by the router before
// any delivery is attempted.
func (s *Store) SaveMessage(ctx context.Context, message *models.Message) error {
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// AddContactPair inserts both directions of the contact edge in one
// transaction so the relation stays symmetric. An existing edge yields
// ErrDuplicate, whether it was caught up front or by the unique index.
func (s *Store) AddContactPair(ctx context.Context, userID, contactID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Contact{UserID: userID, ContactID: contactID}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Contact{UserID: contactID, ContactID: userID}).Error
	})
	if err != nil {
		return translateError(err, "failed to add contact")
	}
	return nil
}

// ContactsOf returns the contact list for a user, joined with the users
// table for display fields.
func (s *Store) ContactsOf(ctx context.Context, userID int64) ([]models.ContactInfo, error) {
	var contacts []models.ContactInfo
	err := s.db.WithContext(ctx).Model(&models.Contact{}).
		Select("users.id", "users.name", "users.phone").
		Joins("JOIN users ON contacts.contact_id = users.id").
		Where("contacts.user_id = ?", userID).
		Scan(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	return contacts, nil
}

// Conversation returns both directions of a direct-message thread ordered
// by timestamp, oldest first.
func (s *Store) Conversation(ctx context.Context, userID, contactID int64) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, contactID, contactID, userID).
		Order("timestamp ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

// UpdateLastSeen records the last-seen timestamp for a user. Presence
// transitions call this fire-and-forget.
func (s *Store) UpdateLastSeen(ctx context.Context, userID int64, seenAt time.Time) error {
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_seen", seenAt).Error; err != nil {
		return fmt.Errorf("failed to update last_seen: %w", err)
	}
	return nil
}

package models

import "time"

// User represents a registered account. The password column holds a bcrypt
// hash and is never serialized.
type User struct {
	ID       int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name     string    `json:"name" gorm:"not null"`
	Phone    string    `json:"phone" gorm:"uniqueIndex;not null"`
	Password string    `json:"-" gorm:"not null"`
	LastSeen time.Time `json:"last_seen" gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}

// Contact is one direction of a symmetric contact edge. Adding a contact
// always inserts both directions inside one transaction.
type Contact struct {
	ID        int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64 `json:"user_id" gorm:"not null;uniqueIndex:idx_contact_pair"`
	ContactID int64 `json:"contact_id" gorm:"not null;uniqueIndex:idx_contact_pair"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Message is a persisted direct message. Immutable once written; Timestamp
// is assigned by the message router before the durable write.
type Message struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SenderID   int64     `json:"senderId" gorm:"column:sender_id;not null;index:idx_messages_sender"`
	ReceiverID int64     `json:"receiverId" gorm:"column:receiver_id;not null;index:idx_messages_receiver"`
	Content    string    `json:"content" gorm:"not null"`
	Timestamp  time.Time `json:"timestamp" gorm:"not null"`
}

func (Message) TableName() string {
	return "messages"
}

// Request/Response DTOs
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type AddContactRequest struct {
	ContactPhone string `json:"contactPhone" binding:"required"`
}

type ContactInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type StatusResponse struct {
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

package chat

import "errors"

var (
	// ErrRecipientNotFound means a direct send targeted an unknown user.
	// Nothing is persisted and nothing is delivered.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrRoomExists means create_room hit a password that is already a key
	// of a live room.
	ErrRoomExists = errors.New("room with this password already exists")

	// ErrRoomNotFound means join_room named a password no live room uses.
	ErrRoomNotFound = errors.New("room with this password does not exist")

	// ErrAlreadyMember means a user with this name is already in the room.
	ErrAlreadyMember = errors.New("user with this name is already connected")
)

package chat

import "errors"

var (
	// ErrEmptyMessage is returned by Add when the text is blank after trimming.
	ErrEmptyMessage = errors.New("chat: message is empty")

	// ErrMessageTooLong is returned by Add when the text exceeds the configured length.
	ErrMessageTooLong = errors.New("chat: message is too long")

	// ErrJoinRejected wraps broadcaster errors returned by Join.
	ErrJoinRejected = errors.New("chat: join rejected")
)

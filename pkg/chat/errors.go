package chat

import "errors"

var (
	// ErrValidation covers malformed turn input.
	ErrValidation = errors.New("chat: invalid input")
	// ErrLifecycle covers turns against users in a state that cannot chat.
	ErrLifecycle = errors.New("chat: lifecycle state does not permit this")
	// ErrConflict covers a racing duplicate whose committed result is not
	// readable yet.
	ErrConflict = errors.New("chat: concurrent duplicate turn")
	// ErrGeneration covers text-generation failures. The turn aborts with no
	// state written.
	ErrGeneration = errors.New("chat: generation failed")
)

package game

import "errors"

// Entity-level errors are raised synchronously to the immediate caller;
// they indicate misuse of the entity contract rather than a runtime
// condition worth retrying.
var (
	ErrAlreadyPersisted  = errors.New("game already has an id, use Update instead of Save")
	ErrNotPersisted      = errors.New("game has no id yet, call Save first")
	ErrNotBound          = errors.New("game is not bound to a store")
	ErrPlayerNotFound    = errors.New("player not found in this game")
	ErrInvalidParameters = errors.New("invalid parameters")
)

// Remote-operation errors surface on the failure channel of Join and
// access-code generation and are meant for user-facing display.
var (
	ErrGameNotFound    = errors.New("no active game in the lobby state matches that access code")
	ErrTooManyAttempts = errors.New("a unique access code could not be generated despite several attempts")
)

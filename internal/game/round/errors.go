package round

import "errors"

var (
	ErrInvalidStage      = errors.New("invalid stage")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrNotEnoughPlayers  = errors.New("not enough players")
	ErrCorruptState      = errors.New("corrupt table state")
)

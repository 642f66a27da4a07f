package domain

import "errors"

var (
	ErrInvalidSeat     = errors.New("table: invalid seat number")
	ErrSeatOccupied    = errors.New("table: seat is occupied")
	ErrSeatEmpty       = errors.New("table: seat is empty")
	ErrAlreadySeated   = errors.New("table: player is already seated")
	ErrPlayerNotSeated = errors.New("table: player is not seated")
)

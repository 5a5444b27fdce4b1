package blackjack

import "errors"

var (
	ErrInvalidPhase        = errors.New("action not valid in current phase")
	ErrNotYourTurn         = errors.New("action out of turn")
	ErrInvalidBet          = errors.New("invalid bet amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrCannotDoubleDown    = errors.New("double down not available")
	ErrCannotSplit         = errors.New("split not available")
	ErrAlreadySplit        = errors.New("seat already split this round")
	ErrSplitOrdering       = errors.New("split hand acted before primary hand resolved")
	ErrGameFull            = errors.New("all seats are taken")
	ErrSeatTaken           = errors.New("seat already occupied")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrNoPlayers           = errors.New("no seated players")
	ErrShoeExhausted       = errors.New("shoe exhausted")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }

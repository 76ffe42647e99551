package lobbyerrors

import "errors"

// Lobby and game-rule sentinel errors. Shared between the lobby and ws
// packages to avoid circular imports. Turn errors are deliberately silent
// at the protocol level; everything else is reported to the acting caller.
var (
	ErrInProgress       = errors.New("game already in progress")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidCard      = errors.New("invalid card")
	ErrCannotPlay       = errors.New("cannot play that card")
	ErrInvalidColor     = errors.New("invalid color")
)

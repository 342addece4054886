package boardstore

import (
	"github.com/pkg/errors"

	"github.com/capstone/board-back/pkg/types"
)

// Cursor points at the first board of the next page to list.
type Cursor struct {
	Number int64
}

// Mutator modifies a board in place. Returning an error aborts the
// modification, nothing is persisted.
type Mutator func(board *types.Board) error

type Store interface {
	// Add stores a new board and assigns it the next free number. The board
	// must not have a number yet.
	Add(board types.Board) (types.Board, error)

	// Restore stores a board that already has a number, for example when
	// importing existing data. If a board with this number already exists, it
	// returns ErrNumberAlreadyExists. Boards added afterwards get numbers
	// greater than every restored one.
	Restore(board types.Board) error

	// Get returns the board with the given number, or ErrNumberNotFound.
	Get(number int64) (types.Board, error)

	// Modify atomically loads the board with the given number, applies mutate
	// and saves the result. If a board with the given number cannot be found,
	// it returns ErrNumberNotFound. Errors returned by mutate are returned
	// as is.
	Modify(number int64, mutate Mutator) (types.Board, error)

	// Delete removes the board with the given number, or returns
	// ErrNumberNotFound.
	Delete(number int64) error

	// List lists the first n boards after the given cursor, most recent
	// (highest number) first.
	//
	// EmptyCursor can be passed to list boards from the beginning.
	//
	// List returns a cursor that can be passed back to the next call for
	// continuing the iteration over the boards. When there are no more boards
	// to iterate, the returned cursor is EmptyCursor.
	List(c Cursor, n uint) (boards []types.Board, next Cursor, err error)

	Close() error
}

var EmptyCursor = Cursor{}
var ErrNumberAlreadyExists = errors.New("A board with this number already exists")
var ErrNumberNotFound = errors.New("A board with this number cannot be found")
var ErrInvalidNumber = errors.New("Invalid board number (should be positive)")

package boardservice

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/capstone/board-back/pkg/boardstore"
	"github.com/capstone/board-back/pkg/types"
)

type Service interface {
	Post(req types.PostBoardRequest, email string) (types.Board, error)

	// Get returns a board and counts one view of it.
	Get(number int64) (types.Board, error)

	// Patch replaces the title and content of a board written by email.
	Patch(number int64, req types.PatchBoardRequest, email string) (types.Board, error)

	// Delete removes a board written by email.
	Delete(number int64, email string) error

	Favorite(number int64) (types.Board, error)
	Unfavorite(number int64) (types.Board, error)
	AddComment(number int64) (types.Board, error)
	RemoveComment(number int64) (types.Board, error)

	List(cursor string, n uint) (boards []types.Board, nextCursor string, err error)
}

type boardService struct {
	store    boardstore.Store
	validate *validator.Validate
}

// Limits enforced by the validate tags of the request types.
const MaxTitleLength = types.MaxTitleLength
const MaxContentLength = types.MaxContentLength
const MaxEmailLength = types.MaxEmailLength
const MaxPageSize = 100

var ErrInvalidTitle = &userError{errors.Errorf("Invalid title (should not be empty or longer than %d characters)", MaxTitleLength), KindInvalid}
var ErrInvalidContent = &userError{errors.Errorf("Invalid content (should not be empty or longer than %d characters)", MaxContentLength), KindInvalid}
var ErrInvalidEmail = &userError{errors.Errorf("Invalid email (should be a valid address of at most %d characters)", MaxEmailLength), KindInvalid}
var ErrInvalidCursor = &userError{errors.New("Invalid cursor"), KindInvalid}
var ErrInvalidPageSize = &userError{errors.Errorf("Invalid page size (should be between 1 and %d)", MaxPageSize), KindInvalid}
var ErrNotFound = &userError{boardstore.ErrNumberNotFound, KindNotFound}
var ErrNoPermission = &userError{errors.New("Only the writer of a board can modify it"), KindForbidden}

var emailRules = "required,email,max=" + strconv.Itoa(MaxEmailLength)

func New(store boardstore.Store) Service {
	return &boardService{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *boardService) validateRequest(req interface{}) error {
	err := s.validate.Struct(req)

	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)

	if !ok || len(fieldErrors) == 0 {
		return errors.Wrap(err, "Error while validating request")
	}

	switch fieldErrors[0].Field() {
	case "Title":
		return ErrInvalidTitle
	case "Content":
		return ErrInvalidContent
	}

	return &userError{fieldErrors[0], KindInvalid}
}

func (s *boardService) validateEmail(email string) error {
	if err := s.validate.Var(email, emailRules); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// modify runs mutate through the store, flagging a missing board as a user
// error.
func (s *boardService) modify(number int64, mutate boardstore.Mutator) (types.Board, error) {
	board, err := s.store.Modify(number, mutate)

	if err == boardstore.ErrNumberNotFound {
		return types.Board{}, ErrNotFound
	}

	if err != nil {
		return types.Board{}, errors.Wrap(err, "Error while modifying board in store")
	}

	return board, nil
}

func (s *boardService) Post(req types.PostBoardRequest, email string) (types.Board, error) {
	if err := s.validateRequest(req); err != nil {
		return types.Board{}, errors.Wrap(err, "Invalid board data")
	}

	if err := s.validateEmail(email); err != nil {
		return types.Board{}, errors.Wrap(err, "Invalid writer")
	}

	board, err := s.store.Add(types.NewBoard(req, email))

	return board, errors.Wrap(err, "Error while adding board to store")
}

func (s *boardService) Get(number int64) (types.Board, error) {
	return s.modify(number, func(board *types.Board) error {
		board.IncreaseViewCount()
		return nil
	})
}

func (s *boardService) Patch(number int64, req types.PatchBoardRequest, email string) (types.Board, error) {
	if err := s.validateRequest(req); err != nil {
		return types.Board{}, errors.Wrap(err, "Invalid board data")
	}

	return s.modify(number, func(board *types.Board) error {
		if board.WriterEmail() != email {
			return ErrNoPermission
		}

		board.Patch(req)

		return nil
	})
}

func (s *boardService) Delete(number int64, email string) error {
	board, err := s.store.Get(number)

	if err == boardstore.ErrNumberNotFound {
		return ErrNotFound
	}

	if err != nil {
		return errors.Wrap(err, "Error while getting board from store")
	}

	if board.WriterEmail() != email {
		return ErrNoPermission
	}

	err = s.store.Delete(number)

	if err == boardstore.ErrNumberNotFound {
		// Deleted concurrently
		return ErrNotFound
	}

	return errors.Wrap(err, "Error while deleting board from store")
}

func (s *boardService) Favorite(number int64) (types.Board, error) {
	return s.modify(number, func(board *types.Board) error {
		board.IncreaseFavoriteCount()
		return nil
	})
}

func (s *boardService) Unfavorite(number int64) (types.Board, error) {
	return s.modify(number, func(board *types.Board) error {
		board.DecreaseFavoriteCount()
		return nil
	})
}

func (s *boardService) AddComment(number int64) (types.Board, error) {
	return s.modify(number, func(board *types.Board) error {
		board.IncreaseCommentCount()
		return nil
	})
}

func (s *boardService) RemoveComment(number int64) (types.Board, error) {
	return s.modify(number, func(board *types.Board) error {
		board.DecreaseCommentCount()
		return nil
	})
}

func encodeCursor(cursor boardstore.Cursor) (string, error) {
	if cursor == boardstore.EmptyCursor {
		return "", nil
	}

	jsonEncoded, err := json.Marshal(cursor)

	if err != nil {
		return "", errors.Wrap(err, "Error while encoding cursor to JSON")
	}

	return base64.URLEncoding.EncodeToString(jsonEncoded), nil
}

func decodeCursor(cursor string) (boardstore.Cursor, error) {
	if cursor == "" {
		return boardstore.EmptyCursor, nil
	}

	jsonEncoded, err := base64.URLEncoding.DecodeString(cursor)

	if err != nil {
		return boardstore.Cursor{}, errors.Wrap(err, "Error while decoding base64")
	}

	var decoded boardstore.Cursor

	if err := json.Unmarshal(jsonEncoded, &decoded); err != nil {
		return boardstore.Cursor{}, errors.Wrap(err, "Error while decoding JSON")
	}

	if decoded.Number <= 0 {
		return boardstore.Cursor{}, errors.New("Cursor number should be positive")
	}

	return decoded, nil
}

func (s *boardService) List(cursor string, n uint) ([]types.Board, string, error) {
	if n == 0 || n > MaxPageSize {
		return nil, "", ErrInvalidPageSize
	}

	decodedCursor, err := decodeCursor(cursor)

	if err != nil {
		return nil, "", ErrInvalidCursor
	}

	boards, nextCursor, err := s.store.List(decodedCursor, n)

	if err != nil {
		return nil, "", errors.Wrap(err, "Error while listing boards")
	}

	nextCursorStr, err := encodeCursor(nextCursor)

	if err != nil {
		return nil, "", errors.Wrap(err, "Error while encoding next cursor")
	}

	return boards, nextCursorStr, nil
}

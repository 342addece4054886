package boardstore

import (
	"sync"

	avl "github.com/emirpasic/gods/trees/avltree"

	"github.com/capstone/board-back/pkg/types"
)

type memoryBoardStore struct {
	sync.RWMutex
	boards     map[int64]types.Board
	byNumber   *avl.Tree
	lastNumber int64
}

// sortNumbersReverse sorts the highest (most recent) board number first.
func sortNumbersReverse(a, b interface{}) int {
	aNumber, bNumber := a.(int64), b.(int64)

	if aNumber > bNumber {
		return -1
	}

	if aNumber < bNumber {
		return 1
	}

	return 0
}

func NewMemoryBoardStore() (Store, error) {
	return &memoryBoardStore{
		boards:   map[int64]types.Board{},
		byNumber: avl.NewWith(sortNumbersReverse),
	}, nil
}

func (s *memoryBoardStore) Add(board types.Board) (types.Board, error) {
	s.Lock()
	defer s.Unlock()

	if err := board.AssignNumber(s.lastNumber + 1); err != nil {
		return types.Board{}, err
	}

	s.lastNumber = board.Number()
	s.put(board)

	return board, nil
}

func (s *memoryBoardStore) Restore(board types.Board) error {
	if board.Number() <= 0 {
		return ErrInvalidNumber
	}

	s.Lock()
	defer s.Unlock()

	if _, exists := s.boards[board.Number()]; exists {
		return ErrNumberAlreadyExists
	}

	if board.Number() > s.lastNumber {
		s.lastNumber = board.Number()
	}

	s.put(board)

	return nil
}

func (s *memoryBoardStore) put(board types.Board) {
	s.boards[board.Number()] = board
	s.byNumber.Put(board.Number(), struct{}{})
}

func (s *memoryBoardStore) Get(number int64) (types.Board, error) {
	s.RLock()
	defer s.RUnlock()

	board, exists := s.boards[number]

	if !exists {
		return types.Board{}, ErrNumberNotFound
	}

	return board, nil
}

func (s *memoryBoardStore) Modify(number int64, mutate Mutator) (types.Board, error) {
	s.Lock()
	defer s.Unlock()

	board, exists := s.boards[number]

	if !exists {
		return types.Board{}, ErrNumberNotFound
	}

	if err := mutate(&board); err != nil {
		return types.Board{}, err
	}

	s.boards[number] = board

	return board, nil
}

func (s *memoryBoardStore) Delete(number int64) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.boards[number]; !exists {
		return ErrNumberNotFound
	}

	delete(s.boards, number)
	s.byNumber.Remove(number)

	return nil
}

func (s *memoryBoardStore) List(c Cursor, n uint) ([]types.Board, Cursor, error) {
	s.RLock()
	defer s.RUnlock()

	var node *avl.Node

	if c == EmptyCursor {
		node = s.byNumber.Left()
	} else {
		// The cursor board may have been deleted since, start at the next
		// lower number then.
		node, _ = s.byNumber.Ceiling(c.Number)
	}

	if node == nil {
		// No more boards to iterate
		return nil, EmptyCursor, nil
	}

	boards := make([]types.Board, 0, n)

	for ; node != nil && uint(len(boards)) < n; node = node.Next() {
		boards = append(boards, s.boards[node.Key.(int64)])
	}

	var endCursor Cursor

	if node == nil {
		endCursor = EmptyCursor
	} else {
		endCursor = Cursor{Number: node.Key.(int64)}
	}

	return boards, endCursor, nil
}

func (s *memoryBoardStore) Close() error {
	return nil
}

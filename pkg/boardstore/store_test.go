package boardstore_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/capstone/board-back/pkg/boardstore"
	"github.com/capstone/board-back/pkg/types"
)

func testStore(t *testing.T, storeFactory func(t *testing.T) boardstore.Store) {
	withStore := func(f func(t *testing.T, store boardstore.Store)) func(*testing.T) {
		return func(t *testing.T) {
			store := storeFactory(t)
			defer store.Close()

			f(t, store)
		}
	}

	t.Run("Add", withStore(testAdd))
	t.Run("Restore", withStore(testRestore))
	t.Run("Get", withStore(testGet))
	t.Run("Modify", withStore(testModify))
	t.Run("Modify (concurrent)", withStore(testModifyConcurrent))
	t.Run("Delete", withStore(testDelete))
	t.Run("List", withStore(testList))
}

func newBoard(idx int) types.Board {
	idxStr := fmt.Sprintf("%04d", idx)

	return types.NewBoard(types.PostBoardRequest{
		Title:   "Title " + idxStr,
		Content: "Content " + idxStr,
	}, "writer"+idxStr+"@domain.com")
}

func checkBoards(t *testing.T, store boardstore.Store, expected []types.Board) {
	boards, _, err := store.List(boardstore.EmptyCursor, 100)

	if err != nil {
		t.Errorf("List returned an error: %s", err)
		return
	}

	if len(boards) != len(expected) {
		t.Errorf("List returned %d boards, expected %d", len(boards), len(expected))
		return
	}

	for i := range expected {
		if !boards[i].Equal(expected[i]) {
			t.Errorf("List returned an unexpected board at index %d: got %+v, expected %+v", i, boards[i], expected[i])
		}
	}
}

func testAdd(t *testing.T, store boardstore.Store) {
	first, err := store.Add(newBoard(1))

	if err != nil {
		t.Fatalf("Add returned an error when adding a new board: %s", err)
	}

	if first.Number() <= 0 {
		t.Errorf("Add didn't assign a number, got %d", first.Number())
	}

	second, err := store.Add(newBoard(2))

	if err != nil {
		t.Fatalf("Add returned an error when adding a new board: %s", err)
	}

	if second.Number() <= first.Number() {
		t.Errorf("Add assigned number %d after %d", second.Number(), first.Number())
	}

	checkBoards(t, store, []types.Board{second, first})

	if _, err := store.Add(first); err != types.ErrNumberAlreadyAssigned {
		t.Errorf("Add returned an unexpected error when adding a board with a number: %v", err)
	}

	checkBoards(t, store, []types.Board{second, first})
}

func testRestore(t *testing.T, store boardstore.Store) {
	restored := types.HydrateBoard(10, "Restored", "Content", "2020-01-02 03:04:05", 1, 2, 3, "e@x.org")

	if err := store.Restore(restored); err != nil {
		t.Fatalf("Restore returned an error: %s", err)
	}

	if err := store.Restore(restored); err == nil {
		t.Errorf("Restore didn't return an error when restoring an existing number")
	} else if err != boardstore.ErrNumberAlreadyExists {
		t.Errorf("Restore returned an unexpected error when restoring an existing number: %s", err)
	}

	if err := store.Restore(newBoard(0)); err != boardstore.ErrInvalidNumber {
		t.Errorf("Restore returned an unexpected error for a board without number: %v", err)
	}

	added, err := store.Add(newBoard(1))

	if err != nil {
		t.Fatalf("Add returned an error: %s", err)
	}

	if added.Number() <= restored.Number() {
		t.Errorf("Add after Restore assigned number %d, expected more than %d", added.Number(), restored.Number())
	}

	checkBoards(t, store, []types.Board{added, restored})
}

func testGet(t *testing.T, store boardstore.Store) {
	if _, err := store.Get(1); err != boardstore.ErrNumberNotFound {
		t.Errorf("Get returned an unexpected error for a non existing board: %v", err)
	}

	added, err := store.Add(newBoard(1))

	if err != nil {
		t.Fatalf("Add returned an error: %s", err)
	}

	board, err := store.Get(added.Number())

	if err != nil {
		t.Fatalf("Get returned an error: %s", err)
	}

	if !board.Equal(added) {
		t.Errorf("Get returned an unexpected board: got %+v, expected %+v", board, added)
	}
}

func testModify(t *testing.T, store boardstore.Store) {
	increase := func(board *types.Board) error {
		board.IncreaseViewCount()
		return nil
	}

	if _, err := store.Modify(1, increase); err != boardstore.ErrNumberNotFound {
		t.Errorf("Modify returned an unexpected error for a non existing board: %v", err)
	}

	board, err := store.Add(newBoard(1))

	if err != nil {
		t.Fatalf("Add returned an error: %s", err)
	}

	modified, err := store.Modify(board.Number(), func(b *types.Board) error {
		b.IncreaseViewCount()
		b.IncreaseFavoriteCount()
		b.IncreaseCommentCount()
		b.Patch(types.PatchBoardRequest{Title: "X", Content: "Y"})
		return nil
	})

	if err != nil {
		t.Fatalf("Modify returned an error: %s", err)
	}

	board.IncreaseViewCount()
	board.IncreaseFavoriteCount()
	board.IncreaseCommentCount()
	board.Patch(types.PatchBoardRequest{Title: "X", Content: "Y"})

	if !modified.Equal(board) {
		t.Errorf("Modify returned an unexpected board: got %+v, expected %+v", modified, board)
	}

	checkBoards(t, store, []types.Board{board})

	errAbort := errors.New("abort")

	_, err = store.Modify(board.Number(), func(b *types.Board) error {
		b.Patch(types.PatchBoardRequest{Title: "not", Content: "saved"})
		return errAbort
	})

	if err != errAbort {
		t.Errorf("Modify returned an unexpected error: got %v, expected %v", err, errAbort)
	}

	checkBoards(t, store, []types.Board{board})
}

func testModifyConcurrent(t *testing.T, store boardstore.Store) {
	board, err := store.Add(newBoard(1))

	if err != nil {
		t.Fatalf("Add returned an error: %s", err)
	}

	const nWorkers = 8
	const nIncrements = 25

	wg := sync.WaitGroup{}

	for i := 0; i < nWorkers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < nIncrements; j++ {
				_, err := store.Modify(board.Number(), func(b *types.Board) error {
					b.IncreaseViewCount()
					return nil
				})

				if err != nil {
					t.Errorf("Modify returned an error: %s", err)
					return
				}
			}
		}()
	}

	wg.Wait()

	board, err = store.Get(board.Number())

	if err != nil {
		t.Fatalf("Get returned an error: %s", err)
	}

	if board.ViewCount() != nWorkers*nIncrements {
		t.Errorf("Unexpected view count after concurrent increments: got %d, expected %d", board.ViewCount(), nWorkers*nIncrements)
	}
}

func testDelete(t *testing.T, store boardstore.Store) {
	if err := store.Delete(1); err != boardstore.ErrNumberNotFound {
		t.Errorf("Delete returned an unexpected error for a non existing board: %v", err)
	}

	first, err := store.Add(newBoard(1))

	if err != nil {
		t.Fatalf("Add returned an error: %s", err)
	}

	second, err := store.Add(newBoard(2))

	if err != nil {
		t.Fatalf("Add returned an error: %s", err)
	}

	if err := store.Delete(first.Number()); err != nil {
		t.Errorf("Delete returned an error: %s", err)
	}

	if _, err := store.Get(first.Number()); err != boardstore.ErrNumberNotFound {
		t.Errorf("Get after Delete returned an unexpected error: %v", err)
	}

	checkBoards(t, store, []types.Board{second})
}

func testList(t *testing.T, store boardstore.Store) {
	const nBoards = 100

	var added []types.Board

	t.Run("Empty store", func(t *testing.T) {
		boards, cursor, err := store.List(boardstore.EmptyCursor, 10)

		if err != nil {
			t.Errorf("List on an empty store returned an error: %s", err)
		}

		if len(boards) != 0 {
			t.Error("List on an empty store didn't return an empty list of boards")
		}

		if cursor != boardstore.EmptyCursor {
			t.Error("List on an empty store didn't return an empty cursor")
		}

		for i := 0; i < nBoards; i++ {
			board, err := store.Add(newBoard(i))

			if err != nil {
				t.Fatalf("Add returned an error: %s", err)
			}

			added = append(added, board)
		}
	})

	t.Run("List all boards at once", func(t *testing.T) {
		boards, cursor, err := store.List(boardstore.EmptyCursor, nBoards)

		if err != nil {
			t.Errorf("List returned an error: %s", err)
		}

		if len(boards) != nBoards {
			t.Errorf("List returned %d boards, expected %d", len(boards), nBoards)
		} else {
			for i := 0; i < nBoards; i++ {
				// Most recent (highest number) first
				expected := added[nBoards-i-1]

				if !boards[i].Equal(expected) {
					t.Errorf("List returned an unexpected board at index %d: got %+v, expected %+v", i, boards[i], expected)
				}
			}
		}

		if cursor != boardstore.EmptyCursor {
			t.Errorf("List didn't return an empty cursor")
		}
	})

	t.Run("Paginate", func(t *testing.T) {
		pageSize := uint(nBoards * 2 / 3)
		boards, cursor, err := store.List(boardstore.EmptyCursor, pageSize)

		if err != nil {
			t.Errorf("List for first page returned an error: %s", err)
		}

		if uint(len(boards)) != pageSize {
			t.Errorf("List for first page returned %d boards, expected %d", len(boards), pageSize)
		} else {
			for i := 0; i < int(pageSize); i++ {
				expected := added[nBoards-i-1]

				if !boards[i].Equal(expected) {
					t.Errorf("List for first page returned an unexpected board at index %d: got %+v, expected %+v", i, boards[i], expected)
				}
			}
		}

		if cursor == boardstore.EmptyCursor {
			t.Errorf("List for first page did return an empty cursor")
			return // not much else we can do...
		}

		boards, cursor, err = store.List(cursor, pageSize)

		if err != nil {
			t.Errorf("List for second page returned an error: %s", err)
		}

		expectedNBoards := nBoards - pageSize

		if uint(len(boards)) != expectedNBoards {
			t.Errorf("List for second page returned %d boards, expected %d", len(boards), expectedNBoards)
		} else {
			for i := 0; i < int(expectedNBoards); i++ {
				expected := added[nBoards-int(pageSize)-i-1]

				if !boards[i].Equal(expected) {
					t.Errorf("List for second page returned an unexpected board at index %d: got %+v, expected %+v", i, boards[i], expected)
				}
			}
		}

		if cursor != boardstore.EmptyCursor {
			t.Errorf("List for second page didn't return an empty cursor")
		}
	})

	t.Run("Cursor on a deleted board", func(t *testing.T) {
		_, cursor, err := store.List(boardstore.EmptyCursor, 1)

		if err != nil {
			t.Fatalf("List returned an error: %s", err)
		}

		if err := store.Delete(cursor.Number); err != nil {
			t.Fatalf("Delete returned an error: %s", err)
		}

		boards, _, err := store.List(cursor, 1)

		if err != nil {
			t.Fatalf("List returned an error: %s", err)
		}

		expected := added[nBoards-3]

		if len(boards) != 1 || !boards[0].Equal(expected) {
			t.Errorf("List after deleting the cursor board returned %+v, expected %+v", boards, expected)
		}
	})
}

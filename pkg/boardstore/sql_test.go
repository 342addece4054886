package boardstore_test

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/capstone/board-back/pkg/boardstore"
	"github.com/capstone/board-back/pkg/types"
)

func openSQLite(t *testing.T) boardstore.Store {
	store, err := boardstore.OpenSQLite(filepath.Join(t.TempDir(), "db", "board.sqlite"))

	if err != nil {
		t.Fatalf("OpenSQLite returned an error: %s", err)
	}

	return store
}

func TestSQLiteStore(t *testing.T) {
	testStore(t, openSQLite)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.sqlite")
	store, err := boardstore.OpenSQLite(path)

	if err != nil {
		t.Fatalf("OpenSQLite returned an error: %s", err)
	}

	board, err := store.Add(types.NewBoard(types.PostBoardRequest{Title: "t", Content: "c"}, "e@x.org"))

	if err != nil {
		t.Fatalf("Add returned an error: %s", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close returned an error: %s", err)
	}

	store, err = boardstore.OpenSQLite(path)

	if err != nil {
		t.Fatalf("OpenSQLite on an existing database returned an error: %s", err)
	}

	defer store.Close()

	loaded, err := store.Get(board.Number())

	if err != nil {
		t.Fatalf("Get returned an error: %s", err)
	}

	if !loaded.Equal(board) {
		t.Errorf("Unexpected board after reopening: got %+v, expected %+v", loaded, board)
	}
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	if _, err := boardstore.OpenSQLite(""); err == nil {
		t.Errorf("OpenSQLite didn't return an error for an empty path")
	}
}

func TestDialectBindTypes(t *testing.T) {
	const query = "UPDATE board SET title = ? WHERE board_number = ?"

	if bindType := sqlx.BindType(boardstore.SQLiteDialect.DriverName); bindType != sqlx.QUESTION {
		t.Errorf("Unexpected SQLite bind type: %d", bindType)
	}

	if got := sqlx.Rebind(sqlx.BindType(boardstore.SQLiteDialect.DriverName), query); got != query {
		t.Errorf("SQLite rebind changed the query: %s", got)
	}

	expected := "UPDATE board SET title = $1 WHERE board_number = $2"

	if got := sqlx.Rebind(sqlx.BindType(boardstore.PostgresDialect.DriverName), query); got != expected {
		t.Errorf("Unexpected PostgreSQL rebind: got %s, expected %s", got, expected)
	}
}

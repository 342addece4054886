package boardstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/capstone/board-back/pkg/types"
)

// boardRow is the persisted shape of a board.
type boardRow struct {
	Number        int64  `db:"board_number"`
	Title         string `db:"title"`
	Content       string `db:"content"`
	WriteDatetime string `db:"write_datetime"`
	FavoriteCount int    `db:"favorite_count"`
	CommentCount  int    `db:"comment_count"`
	ViewCount     int    `db:"view_count"`
	WriterEmail   string `db:"writer_email"`
}

func newBoardRow(board types.Board) boardRow {
	return boardRow{
		Number:        board.Number(),
		Title:         board.Title(),
		Content:       board.Content(),
		WriteDatetime: board.WriteDatetime(),
		FavoriteCount: board.FavoriteCount(),
		CommentCount:  board.CommentCount(),
		ViewCount:     board.ViewCount(),
		WriterEmail:   board.WriterEmail(),
	}
}

func (r boardRow) board() types.Board {
	return types.HydrateBoard(r.Number, r.Title, r.Content, r.WriteDatetime, r.FavoriteCount, r.CommentCount, r.ViewCount, r.WriterEmail)
}

// boardColumns lists the columns of boardRow. The first column is the
// identity generated by the database.
var boardColumns = []string{
	"board_number",
	"title",
	"content",
	"write_datetime",
	"favorite_count",
	"comment_count",
	"view_count",
	"writer_email",
}

var (
	selectBoard  = "SELECT " + strings.Join(boardColumns, ", ") + " FROM board"
	insertBoard  = insertStatement(boardColumns[1:]) + " RETURNING board_number"
	restoreBoard = insertStatement(boardColumns)
	updateBoard  = "UPDATE board SET title = :title, content = :content, favorite_count = :favorite_count, comment_count = :comment_count, view_count = :view_count WHERE board_number = :board_number"
	deleteBoard  = "DELETE FROM board WHERE board_number = ?"
)

func insertStatement(columns []string) string {
	return fmt.Sprintf("INSERT INTO board (%s) VALUES (:%s)", strings.Join(columns, ", "), strings.Join(columns, ", :"))
}

type sqlBoardStore struct {
	db      *sqlx.DB
	dialect Dialect
}

// OpenSQLite opens (and creates if needed) a SQLite database at path.
func OpenSQLite(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("Empty SQLite database path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "Error while creating database directory")
	}

	db, err := sqlx.Open(SQLiteDialect.DriverName, path)

	if err != nil {
		return nil, errors.Wrap(err, "Error while opening SQLite database")
	}

	// SQLite allows a single writer, serialize everything on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return newSQLBoardStore(db, SQLiteDialect)
}

// OpenPostgres connects to a PostgreSQL database using a lib/pq connection
// string.
func OpenPostgres(dsn string) (Store, error) {
	db, err := sqlx.Connect(PostgresDialect.DriverName, dsn)

	if err != nil {
		return nil, errors.Wrap(err, "Error while connecting to PostgreSQL")
	}

	return newSQLBoardStore(db, PostgresDialect)
}

func newSQLBoardStore(db *sqlx.DB, dialect Dialect) (Store, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "Error while initializing %s schema", dialect.Name)
		}
	}

	return &sqlBoardStore{db: db, dialect: dialect}, nil
}

// get loads a board through q, which is either the database or a
// transaction.
func (s *sqlBoardStore) get(q sqlx.Ext, number int64, lock bool) (types.Board, error) {
	query := selectBoard + " WHERE board_number = ?"

	if lock {
		query += s.dialect.LockSuffix
	}

	var row boardRow

	err := sqlx.Get(q, &row, q.Rebind(query), number)

	if err == sql.ErrNoRows {
		return types.Board{}, ErrNumberNotFound
	}

	if err != nil {
		return types.Board{}, errors.Wrap(err, "Error while loading board")
	}

	return row.board(), nil
}

func (s *sqlBoardStore) Add(board types.Board) (types.Board, error) {
	if board.Number() != 0 {
		return types.Board{}, types.ErrNumberAlreadyAssigned
	}

	query, args, err := s.db.BindNamed(insertBoard, newBoardRow(board))

	if err != nil {
		return types.Board{}, errors.Wrap(err, "Error while binding board")
	}

	var number int64

	if err := s.db.Get(&number, query, args...); err != nil {
		return types.Board{}, errors.Wrap(err, "Error while inserting board")
	}

	if err := board.AssignNumber(number); err != nil {
		return types.Board{}, err
	}

	return board, nil
}

func (s *sqlBoardStore) Restore(board types.Board) error {
	if board.Number() <= 0 {
		return ErrInvalidNumber
	}

	tx, err := s.db.Beginx()

	if err != nil {
		return errors.Wrap(err, "Error while starting transaction")
	}

	defer tx.Rollback()

	if _, err := s.get(tx, board.Number(), false); err == nil {
		return ErrNumberAlreadyExists
	} else if err != ErrNumberNotFound {
		return err
	}

	if _, err := tx.NamedExec(restoreBoard, newBoardRow(board)); err != nil {
		return errors.Wrap(err, "Error while restoring board")
	}

	if s.dialect.AfterRestore != "" {
		if _, err := tx.Exec(s.dialect.AfterRestore); err != nil {
			return errors.Wrap(err, "Error while updating board number sequence")
		}
	}

	return errors.Wrap(tx.Commit(), "Error while committing transaction")
}

func (s *sqlBoardStore) Get(number int64) (types.Board, error) {
	return s.get(s.db, number, false)
}

func (s *sqlBoardStore) Modify(number int64, mutate Mutator) (types.Board, error) {
	tx, err := s.db.Beginx()

	if err != nil {
		return types.Board{}, errors.Wrap(err, "Error while starting transaction")
	}

	defer tx.Rollback()

	board, err := s.get(tx, number, true)

	if err != nil {
		return types.Board{}, err
	}

	if err := mutate(&board); err != nil {
		return types.Board{}, err
	}

	if _, err := tx.NamedExec(updateBoard, newBoardRow(board)); err != nil {
		return types.Board{}, errors.Wrap(err, "Error while updating board")
	}

	if err := tx.Commit(); err != nil {
		return types.Board{}, errors.Wrap(err, "Error while committing transaction")
	}

	return board, nil
}

func (s *sqlBoardStore) Delete(number int64) error {
	res, err := s.db.Exec(s.db.Rebind(deleteBoard), number)

	if err != nil {
		return errors.Wrap(err, "Error while deleting board")
	}

	affected, err := res.RowsAffected()

	if err != nil {
		return errors.Wrap(err, "Error while counting deleted boards")
	}

	if affected == 0 {
		return ErrNumberNotFound
	}

	return nil
}

func (s *sqlBoardStore) List(c Cursor, n uint) ([]types.Board, Cursor, error) {
	query := selectBoard
	args := []interface{}{}

	if c != EmptyCursor {
		query += " WHERE board_number <= ?"
		args = append(args, c.Number)
	}

	// One extra row tells where the next page starts.
	query += " ORDER BY board_number DESC LIMIT ?"
	args = append(args, int64(n)+1)

	var rows []boardRow

	if err := s.db.Select(&rows, s.db.Rebind(query), args...); err != nil {
		return nil, EmptyCursor, errors.Wrap(err, "Error while listing boards")
	}

	boards := make([]types.Board, 0, len(rows))

	for _, row := range rows {
		boards = append(boards, row.board())
	}

	if uint(len(boards)) <= n {
		return boards, EmptyCursor, nil
	}

	return boards[:n], Cursor{Number: boards[n].Number()}, nil
}

func (s *sqlBoardStore) Close() error {
	return s.db.Close()
}

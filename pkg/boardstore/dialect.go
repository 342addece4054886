package boardstore

import "github.com/jmoiron/sqlx"

// Dialect holds what differs between the SQL databases a sqlBoardStore can
// run on. Queries are written with '?' placeholders (or :name parameters) and
// rebound by sqlx according to DriverName.
type Dialect struct {
	Name       string
	DriverName string

	// Schema is executed statement by statement when the store is opened.
	Schema []string

	// LockSuffix is appended to the SELECT of a read-modify-write.
	LockSuffix string

	// AfterRestore is executed after a board was inserted with an explicit
	// number, so that the number generator skips it.
	AfterRestore string
}

var SQLiteDialect = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	Schema: []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS board (
			board_number INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			write_datetime TEXT NOT NULL,
			favorite_count INTEGER NOT NULL DEFAULT 0,
			comment_count INTEGER NOT NULL DEFAULT 0,
			view_count INTEGER NOT NULL DEFAULT 0,
			writer_email TEXT NOT NULL
		);`,
	},
}

var PostgresDialect = Dialect{
	Name:       "postgres",
	DriverName: "postgres",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS board (
			board_number BIGSERIAL PRIMARY KEY,
			title VARCHAR(256) NOT NULL,
			content TEXT NOT NULL,
			write_datetime VARCHAR(19) NOT NULL,
			favorite_count INTEGER NOT NULL DEFAULT 0,
			comment_count INTEGER NOT NULL DEFAULT 0,
			view_count INTEGER NOT NULL DEFAULT 0,
			writer_email VARCHAR(256) NOT NULL
		)`,
	},
	LockSuffix:   " FOR UPDATE",
	AfterRestore: "SELECT setval(pg_get_serial_sequence('board', 'board_number'), (SELECT MAX(board_number) FROM board))",
}

func init() {
	// modernc.org/sqlite registers as "sqlite", which sqlx doesn't know about.
	sqlx.BindDriver(SQLiteDialect.DriverName, sqlx.QUESTION)
}

package library

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// sqliteDriverName is go-sqlite3 with lower() replaced by a Unicode-aware
// version; the built-in only folds ASCII.
const sqliteDriverName = "sqlite3_bookflow"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriverName, sqlx.QUESTION)
}

// dialect holds the handful of SQL differences between the supported drivers.
// Queries otherwise use portable SQL with ? placeholders.
type dialect struct {
	driver string
	// sqlName is the name registered with database/sql.
	sqlName string
	// lockSuffix is appended to SELECTs that must hold the row until commit.
	// SQLite has no row locks; its write transactions start with BEGIN
	// IMMEDIATE and already own the database write lock.
	lockSuffix string
	metaTable  string
	// upsertMeta writes meta(name, value) with two placeholders.
	upsertMeta string
	schema     []string
}

const schemaVersion = 3

var sqliteDialect = dialect{
	driver:     "sqlite3",
	sqlName:    sqliteDriverName,
	lockSuffix: "",
	metaTable:  `CREATE TABLE IF NOT EXISTS meta (name TEXT PRIMARY KEY, value TEXT NOT NULL);`,
	upsertMeta: `INSERT INTO meta(name, value) VALUES(?, ?) ON CONFLICT(name) DO UPDATE SET value=excluded.value;`,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT UNIQUE,
            publisher TEXT NOT NULL DEFAULT '',
            publication_year INTEGER NOT NULL DEFAULT 0,
            category TEXT NOT NULL DEFAULT '',
            total_copies INTEGER NOT NULL DEFAULT 1 CHECK (total_copies >= 0),
            available_copies INTEGER NOT NULL DEFAULT 1
                CHECK (available_copies >= 0 AND available_copies <= total_copies),
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            membership_type TEXT NOT NULL DEFAULT 'Basic'
                CHECK (membership_type IN ('Basic','Premium','Student')),
            registration_date DATE NOT NULL,
            status TEXT NOT NULL DEFAULT 'Active'
                CHECK (status IN ('Active','Suspended','Inactive'))
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            ref TEXT NOT NULL UNIQUE,
            book_id INTEGER NOT NULL REFERENCES books(id),
            user_id INTEGER NOT NULL REFERENCES users(id),
            issue_date DATE NOT NULL,
            due_date DATE NOT NULL,
            return_date DATE,
            status TEXT NOT NULL DEFAULT 'Active'
                CHECK (status IN ('Active','Returned','Overdue')),
            fine INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book_status ON loans(book_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_user_status ON loans(user_id, status);`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id),
            user_id INTEGER NOT NULL REFERENCES users(id),
            reservation_date DATE NOT NULL,
            status TEXT NOT NULL DEFAULT 'Active'
                CHECK (status IN ('Active','Fulfilled','Cancelled'))
        );`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_book_status ON reservations(book_id, status);`,
	},
}

var mysqlDialect = dialect{
	driver:     "mysql",
	sqlName:    "mysql",
	lockSuffix: " FOR UPDATE",
	metaTable:  `CREATE TABLE IF NOT EXISTS meta (name VARCHAR(64) PRIMARY KEY, value VARCHAR(255) NOT NULL) ENGINE=InnoDB`,
	upsertMeta: `INSERT INTO meta(name, value) VALUES(?, ?) ON DUPLICATE KEY UPDATE value=VALUES(value)`,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS books (
            id BIGINT AUTO_INCREMENT PRIMARY KEY,
            title VARCHAR(255) NOT NULL,
            author VARCHAR(255) NOT NULL,
            isbn VARCHAR(20) UNIQUE,
            publisher VARCHAR(255) NOT NULL DEFAULT '',
            publication_year INT NOT NULL DEFAULT 0,
            category VARCHAR(100) NOT NULL DEFAULT '',
            total_copies INT NOT NULL DEFAULT 1,
            available_copies INT NOT NULL DEFAULT 1,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT chk_books_copies CHECK (total_copies >= 0 AND available_copies >= 0 AND available_copies <= total_copies)
        ) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS users (
            id BIGINT AUTO_INCREMENT PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            email VARCHAR(255) NOT NULL UNIQUE,
            phone VARCHAR(20) NOT NULL DEFAULT '',
            address TEXT NOT NULL,
            membership_type ENUM('Basic','Premium','Student') NOT NULL DEFAULT 'Basic',
            registration_date DATE NOT NULL,
            status ENUM('Active','Suspended','Inactive') NOT NULL DEFAULT 'Active'
        ) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS loans (
            id BIGINT AUTO_INCREMENT PRIMARY KEY,
            ref CHAR(26) NOT NULL UNIQUE,
            book_id BIGINT NOT NULL,
            user_id BIGINT NOT NULL,
            issue_date DATE NOT NULL,
            due_date DATE NOT NULL,
            return_date DATE,
            status ENUM('Active','Returned','Overdue') NOT NULL DEFAULT 'Active',
            fine BIGINT NOT NULL DEFAULT 0,
            INDEX idx_loans_book_status (book_id, status),
            INDEX idx_loans_user_status (user_id, status),
            FOREIGN KEY (book_id) REFERENCES books(id),
            FOREIGN KEY (user_id) REFERENCES users(id)
        ) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id BIGINT AUTO_INCREMENT PRIMARY KEY,
            book_id BIGINT NOT NULL,
            user_id BIGINT NOT NULL,
            reservation_date DATE NOT NULL,
            status ENUM('Active','Fulfilled','Cancelled') NOT NULL DEFAULT 'Active',
            INDEX idx_reservations_book_status (book_id, status),
            FOREIGN KEY (book_id) REFERENCES books(id),
            FOREIGN KEY (user_id) REFERENCES users(id)
        ) ENGINE=InnoDB`,
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return sqliteDialect, nil
	case "mysql":
		return mysqlDialect, nil
	}
	return dialect{}, fmt.Errorf("%w: unsupported database driver %q", ErrInvalidArgument, driver)
}

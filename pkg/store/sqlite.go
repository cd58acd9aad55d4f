package store

import (
	"database/sql"
	"fmt"
	"time"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"

	_ "github.com/mattn/go-sqlite3"
)

const SETUP_SQL string = `
CREATE TABLE IF NOT EXISTS txcer_lock (
	account TEXT NOT NULL,
	id TEXT NOT NULL,
	locked_at INTEGER NOT NULL,
	mode TEXT NOT NULL,
	reason TEXT NOT NULL,
	txid TEXT NOT NULL,
	PRIMARY KEY (account, id)
);
CREATE INDEX IF NOT EXISTS txcer_lock_account_i ON txcer_lock (account);
`

// interface guard ensures SQLite implements giga.LockStore
var _ giga.LockStore = SQLite{}

type SQLite struct {
	db *sql.DB
}

// NewSQLite returns a giga.LockStore implementor that uses sqlite
func NewSQLite(fileName string) (SQLite, error) {
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		return SQLite{}, dbErr(err, "opening database")
	}
	// one writer; also keeps a ":memory:" database alive across calls
	db.SetMaxOpenConns(1)
	// init tables / indexes
	_, err = db.Exec(SETUP_SQL)
	if err != nil {
		db.Close()
		return SQLite{}, dbErr(err, "creating database schema")
	}
	return SQLite{db}, nil
}

// Defer this until shutdown
func (s SQLite) Close() {
	s.db.Close()
}

func (s SQLite) LoadLocks(account string) ([]giga.TXCerLock, error) {
	rows, err := s.db.Query("SELECT id, locked_at, mode, reason, txid FROM txcer_lock WHERE account = ? ORDER BY id", account)
	if err != nil {
		return nil, dbErr(err, "LoadLocks: querying locks")
	}
	defer rows.Close()
	locks := []giga.TXCerLock{}
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, dbErr(err, "LoadLocks: scanning lock row")
		}
		locks = append(locks, l)
	}
	if err = rows.Err(); err != nil {
		return nil, dbErr(err, "LoadLocks: querying locks")
	}
	return locks, nil
}

func (s SQLite) SaveLocks(account string, locks []giga.TXCerLock) error {
	tx, err := s.db.Begin()
	if err != nil {
		return dbErr(err, "SaveLocks: beginning transaction")
	}
	defer tx.Rollback()
	_, err = tx.Exec("DELETE FROM txcer_lock WHERE account = ?", account)
	if err != nil {
		return dbErr(err, "SaveLocks: clearing locks")
	}
	stmt, err := tx.Prepare("INSERT INTO txcer_lock (account, id, locked_at, mode, reason, txid) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return dbErr(err, "SaveLocks: preparing insert")
	}
	defer stmt.Close()
	for _, l := range locks {
		_, err = stmt.Exec(account, l.ID, l.LockedAt.UnixNano(), string(l.Mode), l.Reason, l.TxID)
		if err != nil {
			return dbErr(err, "SaveLocks: executing insert")
		}
	}
	err = tx.Commit()
	if err != nil {
		return dbErr(err, "SaveLocks: committing")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLock(row rowScanner) (giga.TXCerLock, error) {
	var l giga.TXCerLock
	var lockedAt int64
	var mode string
	err := row.Scan(&l.ID, &lockedAt, &mode, &l.Reason, &l.TxID)
	if err != nil {
		return giga.TXCerLock{}, err
	}
	l.LockedAt = time.Unix(0, lockedAt)
	l.Mode = giga.TXCerMode(mode)
	if l.Mode != giga.LockDraft && l.Mode != giga.LockSubmitted {
		return giga.TXCerLock{}, fmt.Errorf("lock %s has unknown mode %q", l.ID, mode)
	}
	return l, nil
}

func dbErr(err error, where string) error {
	return giga.NewErr(giga.NotAvailable, "SQLiteStore error: %s: %v", where, err)
}

package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore is an implementation of Store on top of a single two-column
// table in a PostgreSQL database. The caller owns the *sql.DB (and the
// choice of driver).
type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	s := &PostgresStore{db: db, table: table}
	_, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (k TEXT PRIMARY KEY, va BYTEA NOT NULL)`, table))
	if err != nil {
		return nil, fmt.Errorf("could not ensure table %q exists: %w", table, err)
	}
	return s, nil
}

func (s *PostgresStore) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.Exec(fmt.Sprintf(
		`INSERT INTO %s (k, va) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET va = EXCLUDED.va`, s.table),
		key, value)
	if err != nil {
		return fmt.Errorf("could not put %.40q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Get(key string) (value []byte, err error) {
	err = s.db.QueryRow(fmt.Sprintf(
		`SELECT va FROM %s WHERE k = $1`, s.table), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not get %.40q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *PostgresStore) Delete(key string) error {
	_, err := s.db.Exec(fmt.Sprintf(
		`DELETE FROM %s WHERE k = $1`, s.table), key)
	if err != nil {
		return fmt.Errorf("could not delete %.40q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Keys() (keys []string, err error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT k FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("could not list keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("could not scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

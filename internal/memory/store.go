// Package memory persists accepted translations so unchanged text is not sent
// to the translation service again.
package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Key identifies one stored translation.
type Key struct {
	TargetLanguage string
	// Variant separates primary translations from naturalized ones.
	Variant string
	Kind    string
	Source  string
}

// Entry is a stored translation.
type Entry struct {
	Key
	Translated string
	UpdatedAt  time.Time
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var applied int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer of a migration filename ("001_init.sql" is 1).
func migrationVersion(name string) int {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, _ := strconv.Atoi(name[:end])
	return n
}

// Hash returns the lookup hash of a source text.
func Hash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) (string, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT source_text, translated_text
		 FROM translations
		 WHERE target_language = ? AND variant = ? AND kind = ? AND source_hash = ?`,
		key.TargetLanguage,
		key.Variant,
		key.Kind,
		Hash(key.Source),
	)
	var source, translated string
	if err := row.Scan(&source, &translated); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	if source != key.Source {
		return "", false, nil
	}
	return translated, true, nil
}

// List returns every entry stored for a language and variant.
func (s *SQLiteStore) List(ctx context.Context, targetLanguage, variant string) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT kind, source_text, translated_text, updated_at
		 FROM translations
		 WHERE target_language = ? AND variant = ?
		 ORDER BY updated_at ASC`,
		targetLanguage,
		variant,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]Entry, 0)
	for rows.Next() {
		item := Entry{Key: Key{TargetLanguage: targetLanguage, Variant: variant}}
		if err := rows.Scan(&item.Kind, &item.Source, &item.Translated, &item.UpdatedAt); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Put upserts entries in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO translations (
			target_language, variant, kind, source_hash, source_text, translated_text, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(target_language, variant, kind, source_hash) DO UPDATE SET
			source_text=excluded.source_text,
			translated_text=excluded.translated_text,
			updated_at=excluded.updated_at`,
	)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, entry := range entries {
		updatedAt := entry.UpdatedAt.UTC()
		if entry.UpdatedAt.IsZero() {
			updatedAt = now
		}
		if _, err := stmt.ExecContext(
			ctx,
			entry.TargetLanguage,
			entry.Variant,
			entry.Kind,
			Hash(entry.Source),
			entry.Source,
			entry.Translated,
			updatedAt,
		); err != nil {
			return fmt.Errorf("upsert translation: %w", err)
		}
	}
	return tx.Commit()
}

// Purge deletes every entry of a language, or of all languages when targetLanguage is empty.
func (s *SQLiteStore) Purge(ctx context.Context, targetLanguage string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if targetLanguage == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM translations`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM translations WHERE target_language = ?`, targetLanguage)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	"agrimarket/internal/refdata"

	_ "github.com/mattn/go-sqlite3"
)

// Writer seeds a reference-data database.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// NewWriter opens (creating if needed) a SQLite database with WAL mode and schema.
func NewWriter(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS commodities (
			name       TEXT PRIMARY KEY,
			base_price REAL NOT NULL CHECK (base_price > 0)
		);

		CREATE TABLE IF NOT EXISTS products (
			category  TEXT NOT NULL,
			name      TEXT NOT NULL,
			unit      TEXT NOT NULL,
			min_price REAL NOT NULL,
			max_price REAL NOT NULL,
			position  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (category, name)
		);
	`)
	return err
}

// Seed replaces the stored rows with the contents of t in one transaction.
func (w *Writer) Seed(t *refdata.Table) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM commodities; DELETE FROM products;`); err != nil {
		tx.Rollback()
		return err
	}

	cstmt, err := tx.Prepare(`INSERT INTO commodities (name, base_price) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer cstmt.Close()

	for _, c := range t.Commodities() {
		if _, err := cstmt.Exec(c.Name, c.BasePrice); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert commodity %s: %w", c.Name, err)
		}
	}

	pstmt, err := tx.Prepare(`
		INSERT INTO products (category, name, unit, min_price, max_price, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer pstmt.Close()

	n := 0
	for cat, ps := range t.AllProducts() {
		for i, p := range ps {
			if _, err := pstmt.Exec(string(cat), p.Name, p.Unit, p.Min, p.Max, i); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert product %s/%s: %w", cat, p.Name, err)
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] seeded %d commodities, %d products", len(t.Commodities()), n)
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

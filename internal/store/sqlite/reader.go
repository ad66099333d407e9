package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	"agrimarket/internal/refdata"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to a reference-data database.
type Reader struct {
	db *sql.DB
}

// DB exposes the handle for liveness probes.
func (r *Reader) DB() *sql.DB { return r.db }

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping %s: %w", dbPath, err)
	}

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadCommodities reads the series commodities in insertion order.
func (r *Reader) ReadCommodities() ([]refdata.Commodity, error) {
	rows, err := r.db.Query(`SELECT name, base_price FROM commodities ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query commodities: %w", err)
	}
	defer rows.Close()

	var out []refdata.Commodity
	for rows.Next() {
		var c refdata.Commodity
		if err := rows.Scan(&c.Name, &c.BasePrice); err != nil {
			return nil, fmt.Errorf("sqlite scan commodities: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReadProducts reads every product grouped by category, preserving position order.
func (r *Reader) ReadProducts() (map[refdata.Category][]refdata.Product, error) {
	rows, err := r.db.Query(`
		SELECT category, name, unit, min_price, max_price
		FROM products
		ORDER BY category ASC, position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query products: %w", err)
	}
	defer rows.Close()

	out := make(map[refdata.Category][]refdata.Product)
	for rows.Next() {
		var (
			cat string
			p   refdata.Product
		)
		if err := rows.Scan(&cat, &p.Name, &p.Unit, &p.Min, &p.Max); err != nil {
			return nil, fmt.Errorf("sqlite scan products: %w", err)
		}
		out[refdata.Category(cat)] = append(out[refdata.Category(cat)], p)
	}
	return out, rows.Err()
}

// LoadTable reads both tables and builds a validated refdata.Table.
// Empty tables fall back to the built-in rows.
func (r *Reader) LoadTable() (*refdata.Table, error) {
	commodities, err := r.ReadCommodities()
	if err != nil {
		return nil, err
	}
	products, err := r.ReadProducts()
	if err != nil {
		return nil, err
	}
	return refdata.NewTable(commodities, products)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/census-viewer/pkg/types"
)

const defaultIndexLimit = 50

// Index is an in-memory SQLite copy of the variable catalog that backs the
// variable details page. It holds reference data only.
type Index struct {
	db *sql.DB
}

// IndexQuery filters the variable index. Empty fields match everything.
type IndexQuery struct {
	Text     string
	Category string
	Limit    int
}

// NewIndex creates the in-memory database and loads every variable of c.
func NewIndex(ctx context.Context, c *Catalog) (*Index, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening variable index: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	idx := &Index{db: db}
	if err := idx.load(ctx, c); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the database.
func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) load(ctx context.Context, c *Catalog) error {
	statements := []string{
		`CREATE TABLE variables (
			position INTEGER PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT,
			universe TEXT,
			table_type TEXT
		)`,
		`CREATE INDEX idx_variables_category ON variables(category)`,
	}
	for _, stmt := range statements {
		if _, err := i.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating variable index schema: %w", err)
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO variables
		(position, code, name, category, description, universe, table_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing index insert: %w", err)
	}
	defer stmt.Close()

	for pos, v := range c.Variables() {
		table, _ := types.TableTypeOf(v.Code)
		if _, err := stmt.ExecContext(ctx, pos, string(v.Code), v.Name, v.Category,
			v.Description, string(v.Universe), string(table)); err != nil {
			return fmt.Errorf("indexing %s: %w", v.Code, err)
		}
	}
	return tx.Commit()
}

// Search returns variables whose code, name or description contains q.Text
// (case-insensitive), optionally restricted to q.Category, in catalog order.
func (i *Index) Search(ctx context.Context, q IndexQuery) ([]Variable, error) {
	var where []string
	var args []any
	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		where = append(where, `(lower(code) LIKE ? ESCAPE '\' OR lower(name) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultIndexLimit
	}

	query := "SELECT code, name, category, description, universe FROM variables"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY position LIMIT ?"
	args = append(args, limit)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching variable index: %w", err)
	}
	defer rows.Close()

	var out []Variable
	for rows.Next() {
		var v Variable
		var code, universe string
		var desc sql.NullString
		if err := rows.Scan(&code, &v.Name, &v.Category, &desc, &universe); err != nil {
			return nil, fmt.Errorf("scanning variable row: %w", err)
		}
		v.Code = types.VariableCode(code)
		v.Universe = types.VariableCode(universe)
		v.Description = desc.String
		out = append(out, v)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

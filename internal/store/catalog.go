package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleared-dev/ledger-import/internal/model"
)

// EnsureCategory returns the ID of the category named c.Name, creating it
// from c if missing. Names are exact keys; "Parent:Child" is one category.
func (r repo) EnsureCategory(ctx context.Context, c model.ParsedCategory) (string, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, c.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("looking up category %q: %w", c.Name, err)
	}

	id = uuid.NewString()
	income := 0
	if c.Income {
		income = 1
	}
	_, err = r.q.ExecContext(ctx, `INSERT INTO categories (id, name, description, income) VALUES (?, ?, ?, ?)`,
		id, c.Name, c.Description, income)
	if err != nil {
		return "", fmt.Errorf("creating category %q: %w", c.Name, err)
	}
	return id, nil
}

// EnsureTag returns the ID of the tag named t.Name, creating it if missing.
func (r repo) EnsureTag(ctx context.Context, t model.ParsedTag) (string, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, t.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("looking up tag %q: %w", t.Name, err)
	}

	id = uuid.NewString()
	if _, err := r.q.ExecContext(ctx, `INSERT INTO tags (id, name, description) VALUES (?, ?, ?)`, id, t.Name, t.Description); err != nil {
		return "", fmt.Errorf("creating tag %q: %w", t.Name, err)
	}
	return id, nil
}

// Categories returns all categories keyed by name.
func (r repo) Categories(ctx context.Context) (map[string]model.ParsedCategory, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT name, description, income FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	cats := make(map[string]model.ParsedCategory)
	for rows.Next() {
		var c model.ParsedCategory
		var income int
		if err := rows.Scan(&c.Name, &c.Description, &income); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Income = income != 0
		cats[c.Name] = c
	}
	return cats, rows.Err()
}

// Tags returns all tags keyed by name.
func (r repo) Tags(ctx context.Context) (map[string]model.ParsedTag, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT name, description FROM tags`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	tags := make(map[string]model.ParsedTag)
	for rows.Next() {
		var t model.ParsedTag
		if err := rows.Scan(&t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags[t.Name] = t
	}
	return tags, rows.Err()
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog records which characters and backgrounds appear in which
// converted stories. It stores into a local SQLite file or a shared
// PostgreSQL database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	applog "storywiki/internal/log"
	"storywiki/internal/wiki"
)

// ErrNoName is returned when a story is recorded without a name.
var ErrNoName = errors.New("story name is required")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Catalog is an open story catalog. It is safe for concurrent use.
type Catalog struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

// StoryInfo summarizes a recorded story.
type StoryInfo struct {
	Name        string
	Characters  int
	Backgrounds int
	RecordedAt  time.Time
}

// CharacterCount is a character and the number of stories featuring it.
type CharacterCount struct {
	Name    string
	Stories int
}

// IsPostgres reports whether dsn names a PostgreSQL database rather than a
// SQLite file.
func IsPostgres(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// Open opens or creates the catalog named by dsn and brings its schema up
// to date.
func Open(ctx context.Context, dsn string) (*Catalog, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("catalog dsn is required")
	}
	if IsPostgres(dsn) {
		db, err := openPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &Catalog{db: db, dialect: dialectPostgres, log: applog.WithComponent("catalog")}, nil
	}
	db, err := openSQLite(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Catalog{db: db, dialect: dialectSQLite, log: applog.WithComponent("catalog")}, nil
}

// Close releases the database.
func (c *Catalog) Close() error { return c.db.Close() }

// rebind rewrites ? placeholders into the $n form PostgreSQL expects.
func (c *Catalog) rebind(q string) string {
	if c.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record stores the registries of a converted story, replacing what was
// recorded under the same name before.
func (c *Catalog) Record(ctx context.Context, name string, doc *wiki.Document) (err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNoName
	}
	if doc == nil {
		return errors.New("nil document")
	}
	l := applog.WithOperation(c.log, "record").With(slog.String("story", name))
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			l.Error("record failed", slog.Any("err", err))
		}
	}()

	var old int64
	switch err = tx.QueryRowContext(ctx, c.rebind(`SELECT id FROM stories WHERE name = ?`), name).Scan(&old); {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return fmt.Errorf("lookup story: %w", err)
	default:
		for _, q := range []string{
			`DELETE FROM story_characters WHERE story_id = ?`,
			`DELETE FROM story_backgrounds WHERE story_id = ?`,
			`DELETE FROM stories WHERE id = ?`,
		} {
			if _, err = tx.ExecContext(ctx, c.rebind(q), old); err != nil {
				return fmt.Errorf("clear story: %w", err)
			}
		}
	}

	var id int64
	now := time.Now().UTC().Format(time.RFC3339)
	err = tx.QueryRowContext(ctx,
		c.rebind(`INSERT INTO stories (name, body_bytes, recorded_at) VALUES (?, ?, ?) RETURNING id`),
		name, len(doc.Body), now).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	for i, ch := range doc.Characters {
		if _, err = tx.ExecContext(ctx,
			c.rebind(`INSERT INTO story_characters (story_id, position, name) VALUES (?, ?, ?)`),
			id, i+1, ch); err != nil {
			return fmt.Errorf("insert character %q: %w", ch, err)
		}
	}
	for _, bg := range doc.Backgrounds {
		if _, err = tx.ExecContext(ctx,
			c.rebind(`INSERT INTO story_backgrounds (story_id, bg_id, image) VALUES (?, ?, ?)`),
			id, bg.ID, bg.Image); err != nil {
			return fmt.Errorf("insert background %q: %w", bg.Image, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	l.Debug("story recorded", slog.Int("characters", len(doc.Characters)), slog.Int("backgrounds", len(doc.Backgrounds)))
	return nil
}

// Stories lists every recorded story by name.
func (c *Catalog) Stories(ctx context.Context) ([]StoryInfo, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT s.name,
		       (SELECT COUNT(*) FROM story_characters sc WHERE sc.story_id = s.id),
		       (SELECT COUNT(*) FROM story_backgrounds sb WHERE sb.story_id = s.id),
		       s.recorded_at
		FROM stories s
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()
	var out []StoryInfo
	for rows.Next() {
		var s StoryInfo
		var at string
		if err := rows.Scan(&s.Name, &s.Characters, &s.Backgrounds, &at); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		s.RecordedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, s)
	}
	return out, rows.Err()
}

// StoriesWithCharacter returns the names of the stories featuring name.
func (c *Catalog) StoriesWithCharacter(ctx context.Context, name string) ([]string, error) {
	return c.names(ctx, `
		SELECT s.name FROM stories s
		JOIN story_characters sc ON sc.story_id = s.id
		WHERE sc.name = ?
		ORDER BY s.name`, name)
}

// StoriesWithBackground returns the names of the stories showing image.
func (c *Catalog) StoriesWithBackground(ctx context.Context, image string) ([]string, error) {
	return c.names(ctx, `
		SELECT s.name FROM stories s
		JOIN story_backgrounds sb ON sb.story_id = s.id
		WHERE sb.image = ?
		ORDER BY s.name`, image)
}

func (c *Catalog) names(ctx context.Context, q string, arg string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(q), arg)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan story name: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Characters lists every recorded character, most frequent first.
func (c *Catalog) Characters(ctx context.Context) ([]CharacterCount, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, COUNT(DISTINCT story_id) AS n
		FROM story_characters
		GROUP BY name
		ORDER BY n DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()
	var out []CharacterCount
	for rows.Next() {
		var cc CharacterCount
		if err := rows.Scan(&cc.Name, &cc.Stories); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

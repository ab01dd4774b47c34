/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"storywiki/internal/wiki"
)

func openTemp(t *testing.T) (*Catalog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub", "catalog.db")
	c, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, path
}

func doc(chars []string, bgs ...string) *wiki.Document {
	d := &wiki.Document{Characters: chars, Body: "{{sc|x}}"}
	for i, b := range bgs {
		d.Backgrounds = append(d.Backgrounds, wiki.Background{Image: b, ID: i + 1})
	}
	return d
}

func TestOpenCreatesSchema(t *testing.T) {
	c, path := openTemp(t)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("catalog file missing: %v", err)
	}
	var schema int
	if err := c.db.QueryRow(`SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if schema != sqliteSchemaVersion {
		t.Fatalf("schema = %d, want %d", schema, sqliteSchemaVersion)
	}
	var mode string
	if err := c.db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil || mode != "wal" {
		t.Fatalf("journal_mode = %q, %v", mode, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	c, path := openTemp(t)
	if err := c.Record(ctx, "0-1", doc([]string{"Amiya"})); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = c.Close()

	c2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	got, err := c2.StoriesWithCharacter(ctx, "Amiya")
	if err != nil {
		t.Fatalf("StoriesWithCharacter: %v", err)
	}
	if diff := cmp.Diff([]string{"0-1"}, got); diff != "" {
		t.Fatalf("stories mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	c, _ := openTemp(t)
	records := map[string]*wiki.Document{
		"0-1": doc([]string{"Amiya", "Doctor"}, "bg_corridor", "bg_office"),
		"0-2": doc([]string{"Amiya", "Kal'tsit"}, "bg_office"),
		"0-3": doc(nil),
	}
	for _, name := range []string{"0-1", "0-2", "0-3"} {
		if err := c.Record(ctx, name, records[name]); err != nil {
			t.Fatalf("Record(%s): %v", name, err)
		}
	}

	stories, err := c.Stories(ctx)
	if err != nil {
		t.Fatalf("Stories: %v", err)
	}
	want := []StoryInfo{
		{Name: "0-1", Characters: 2, Backgrounds: 2},
		{Name: "0-2", Characters: 2, Backgrounds: 1},
		{Name: "0-3"},
	}
	if diff := cmp.Diff(want, stories, cmpopts.IgnoreFields(StoryInfo{}, "RecordedAt")); diff != "" {
		t.Fatalf("stories mismatch (-want +got):\n%s", diff)
	}
	if time.Since(stories[0].RecordedAt) > time.Hour {
		t.Fatalf("RecordedAt not set: %v", stories[0].RecordedAt)
	}

	chars, err := c.Characters(ctx)
	if err != nil {
		t.Fatalf("Characters: %v", err)
	}
	wantChars := []CharacterCount{{"Amiya", 2}, {"Doctor", 1}, {"Kal'tsit", 1}}
	if diff := cmp.Diff(wantChars, chars); diff != "" {
		t.Fatalf("characters mismatch (-want +got):\n%s", diff)
	}

	withBg, err := c.StoriesWithBackground(ctx, "bg_office")
	if err != nil {
		t.Fatalf("StoriesWithBackground: %v", err)
	}
	if diff := cmp.Diff([]string{"0-1", "0-2"}, withBg); diff != "" {
		t.Fatalf("background stories mismatch (-want +got):\n%s", diff)
	}

	none, err := c.StoriesWithCharacter(ctx, "W")
	if err != nil || len(none) != 0 {
		t.Fatalf("StoriesWithCharacter(W) = %v, %v", none, err)
	}
}

func TestRecordReplacesStory(t *testing.T) {
	ctx := context.Background()
	c, _ := openTemp(t)
	if err := c.Record(ctx, "0-1", doc([]string{"Amiya"}, "bg_a")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := c.Record(ctx, "0-1", doc([]string{"Kal'tsit"})); err != nil {
		t.Fatalf("Record again: %v", err)
	}
	got, err := c.StoriesWithCharacter(ctx, "Amiya")
	if err != nil || len(got) != 0 {
		t.Fatalf("old character still recorded: %v, %v", got, err)
	}
	stories, err := c.Stories(ctx)
	if err != nil || len(stories) != 1 || stories[0].Backgrounds != 0 {
		t.Fatalf("Stories = %+v, %v", stories, err)
	}
}

func TestRecordRejectsEmptyName(t *testing.T) {
	c, _ := openTemp(t)
	if err := c.Record(context.Background(), "  ", doc(nil)); !errors.Is(err, ErrNoName) {
		t.Fatalf("err = %v, want ErrNoName", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &Catalog{dialect: dialectPostgres}
	if got := pg.rebind(`SELECT a FROM t WHERE b = ? AND c = ?`); got != `SELECT a FROM t WHERE b = $1 AND c = $2` {
		t.Fatalf("rebind = %q", got)
	}
	lite := &Catalog{dialect: dialectSQLite}
	if got := lite.rebind(`x = ?`); got != `x = ?` {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
}

func TestIsPostgres(t *testing.T) {
	cases := map[string]bool{
		"postgres://u@h/db":   true,
		"PostgreSQL://u@h/db": true,
		"catalog.db":          false,
		"/var/lib/sw/cat.db":  false,
	}
	for dsn, want := range cases {
		if got := IsPostgres(dsn); got != want {
			t.Fatalf("IsPostgres(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("migrations/0002_indexes.sql"); err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("indexes.sql"); err == nil {
		t.Fatalf("expected error for unnumbered migration")
	}
}

// The PostgreSQL backend is exercised when SW_PG_DSN points at a database.
func TestPostgresRecord(t *testing.T) {
	dsn := os.Getenv("SW_PG_DSN")
	if dsn == "" {
		t.Skip("SW_PG_DSN not set")
	}
	ctx := context.Background()
	c, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer c.Close()
	name := "pg-test-" + time.Now().Format("150405.000")
	defer func() {
		for _, q := range []string{
			`DELETE FROM story_characters WHERE story_id IN (SELECT id FROM stories WHERE name = $1)`,
			`DELETE FROM story_backgrounds WHERE story_id IN (SELECT id FROM stories WHERE name = $1)`,
			`DELETE FROM stories WHERE name = $1`,
		} {
			_, _ = c.db.Exec(q, name)
		}
	}()
	if err := c.Record(ctx, name, doc([]string{"Amiya"}, "bg_a")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := c.StoriesWithBackground(ctx, "bg_a")
	if err != nil {
		t.Fatalf("StoriesWithBackground: %v", err)
	}
	found := false
	for _, n := range got {
		found = found || n == name
	}
	if !found {
		t.Fatalf("%s not found in %v", name, got)
	}
}

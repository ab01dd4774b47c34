/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"storywiki/internal/catalog"
	"storywiki/internal/config"
	"storywiki/internal/crash"
	applog "storywiki/internal/log"
	"storywiki/internal/story"
	"storywiki/internal/telemetry"
	"storywiki/internal/version"
	"storywiki/internal/wiki"
)

// errUsage marks command line mistakes; they exit with code 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "storywiki %s\n\n", version.String())
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  storywiki <file>                                  Convert a story script and print wiki markup")
	_, _ = fmt.Fprintln(w, "  storywiki convert [-notation classic|extended] [-json] [-skip-blank] <file>")
	_, _ = fmt.Fprintln(w, "  storywiki index [-db path|dsn] <file>...          Convert scripts and record them in the catalog")
	_, _ = fmt.Fprintln(w, "  storywiki characters [-db path|dsn] [name]        List characters, or the stories featuring one")
	_, _ = fmt.Fprintln(w, "  storywiki config [show|init]                      Print the effective config, or write the defaults file")
	_, _ = fmt.Fprintln(w, "  storywiki version|-v|--version                    Show version")
}

type app struct {
	cfg    config.AppConfig
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Warning:", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	tel := telemetry.SetDefault(tcfg)

	job := &crash.Job{}
	if len(os.Args) > 1 {
		job.Command = os.Args[1]
		job.Inputs = os.Args[2:]
	}
	code := func() int {
		defer crash.Recover(job)
		a := &app{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr, log: applog.WithComponent("cli")}
		return a.run(context.Background(), os.Args[1:])
	}()
	tel.Flush(context.Background())
	tel.Close()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	a.log.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(a.stderr)
		return 2
	}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(a.stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(a.stdout)
		return 0
	case "convert":
		err = a.convert(ctx, args[1:])
	case "index":
		err = a.index(ctx, args[1:])
	case "characters":
		err = a.characters(ctx, args[1:])
	case "config":
		err = a.configure(args[1:])
	default:
		if strings.HasPrefix(args[0], "-") || len(args) > 1 {
			usage(a.stderr)
			return 2
		}
		err = a.convert(ctx, args)
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintln(a.stderr, "Error:", err)
		usage(a.stderr)
		return 2
	default:
		a.log.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(a.stderr, "Error:", err)
		return 1
	}
}

func (a *app) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) options(notation string, skipBlank bool) (wiki.Options, error) {
	rc := a.cfg.Render
	if notation != "" {
		rc.Notation = notation
	}
	if skipBlank {
		rc.SkipBlankLines = true
	}
	opts, err := rc.Options()
	if err != nil {
		return opts, fmt.Errorf("%w: %v", errUsage, err)
	}
	return opts, nil
}

// convertFile reads and converts one script.
func (a *app) convertFile(ctx context.Context, path string, opts wiki.Options) (*wiki.Document, error) {
	l := applog.WithOperation(a.log, "convert").With(slog.String("file", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open the supplied file: %w", err)
	}
	ctx = applog.ContextWithStory(ctx, filepath.Base(path))
	doc, err := wiki.Convert(string(data), opts)
	if err != nil {
		l.ErrorContext(ctx, "conversion failed", slog.Any("err", err))
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.DebugContext(ctx, "converted",
		slog.Int("characters", len(doc.Characters)),
		slog.Int("backgrounds", len(doc.Backgrounds)))
	telemetry.Default().Conversion(opts.Notation.String(), len(story.SplitLines(string(data))),
		len(doc.Characters), len(doc.Backgrounds))
	return doc, nil
}

func (a *app) convert(ctx context.Context, args []string) error {
	fs := a.newFlags("convert")
	notation := fs.String("notation", "", "script notation: classic or extended")
	asJSON := fs.Bool("json", false, "print the document as JSON")
	skipBlank := fs.Bool("skip-blank", false, "ignore blank lines instead of failing")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: you must pass the name of the story file", errUsage)
	}
	opts, err := a.options(*notation, *skipBlank)
	if err != nil {
		return err
	}
	doc, err := a.convertFile(ctx, fs.Arg(0), opts)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	_, err = fmt.Fprintln(a.stdout, doc.String())
	return err
}

func (a *app) openCatalog(ctx context.Context, dsn string) (*catalog.Catalog, error) {
	if dsn == "" {
		var err error
		if dsn, err = a.cfg.CatalogDSN(); err != nil {
			return nil, err
		}
	}
	return catalog.Open(ctx, dsn)
}

// storyName derives the catalog name of a script from its file name.
func storyName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *app) index(ctx context.Context, args []string) error {
	fs := a.newFlags("index")
	dsn := fs.String("db", "", "catalog SQLite path or postgres:// URL")
	notation := fs.String("notation", "", "script notation: classic or extended")
	skipBlank := fs.Bool("skip-blank", false, "ignore blank lines instead of failing")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: index requires at least one file", errUsage)
	}
	opts, err := a.options(*notation, *skipBlank)
	if err != nil {
		return err
	}
	cat, err := a.openCatalog(ctx, *dsn)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()

	for _, path := range fs.Args() {
		doc, err := a.convertFile(ctx, path, opts)
		if err != nil {
			return err
		}
		if err := cat.Record(ctx, storyName(path), doc); err != nil {
			return fmt.Errorf("record %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(a.stdout, "%s: %d characters, %d backgrounds\n", storyName(path), len(doc.Characters), len(doc.Backgrounds))
	}
	return nil
}

func (a *app) characters(ctx context.Context, args []string) error {
	fs := a.newFlags("characters")
	dsn := fs.String("db", "", "catalog SQLite path or postgres:// URL")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: characters takes at most one name", errUsage)
	}
	cat, err := a.openCatalog(ctx, *dsn)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()

	if fs.NArg() == 1 {
		stories, err := cat.StoriesWithCharacter(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		for _, s := range stories {
			_, _ = fmt.Fprintln(a.stdout, s)
		}
		return nil
	}
	chars, err := cat.Characters(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHARACTER\tSTORIES")
	for _, c := range chars {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Stories)
	}
	return tw.Flush()
}

// configure prints the effective configuration or seeds the user config file.
func (a *app) configure(args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: config takes at most one subcommand", errUsage)
	}
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	switch sub {
	case "show":
		data, err := yaml.Marshal(a.cfg)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "# %s\n%s", path, data)
		for _, key := range config.Overrides() {
			env, _ := config.EnvOverrideFor(key)
			_, _ = fmt.Fprintf(a.stdout, "# %s overridden by %s\n", key, env)
		}
		return nil
	case "init":
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		// Defaults only, so env overrides never end up in the file.
		if err := config.Save(config.Defaults()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		_, _ = fmt.Fprintln(a.stdout, path)
		return nil
	default:
		return fmt.Errorf("%w: unknown config subcommand %q", errUsage, sub)
	}
}

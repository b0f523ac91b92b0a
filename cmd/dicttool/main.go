package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/bastiangx/wordvault/internal/importer"
	"github.com/bastiangx/wordvault/internal/ingest"
	"github.com/bastiangx/wordvault/internal/logger"
	"github.com/bastiangx/wordvault/internal/manifest"
	"github.com/bastiangx/wordvault/pkg/dict"
)

func main() {
	cmd := &cli.Command{
		Name:  "dicttool",
		Usage: "Create, inspect and maintain wordvault dictionary files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("WORDVAULT_DEBUG"),
			},
		},
		Commands: []*cli.Command{
			createCommand(),
			infoCommand(),
			statsCommand(),
			dumpCommand(),
			compactCommand(),
			migrateCommand(),
			importCommand(),
			ingestCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func setupLogging(cmd *cli.Command) {
	if cmd.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	logger.ApplyEnvLevel()
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new dictionary file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Usage: "Locale header attribute", Value: "en"},
			&cli.IntFlag{Name: "format", Usage: "On-disk format version (399, 402, 403)", Value: 0},
			&cli.IntFlag{Name: "max-unigrams", Usage: "Word entry capacity (0 keeps default)"},
			&cli.IntFlag{Name: "max-ngrams", Usage: "Association capacity (0 keeps default)"},
			&cli.StringFlag{Name: "seed", Aliases: []string{"s"}, Usage: "YAML manifest to seed entries from"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("create needs a dictionary file path")
			}
			d, err := dict.Create(path, dict.CreateOptions{
				Version:     dict.Version(cmd.Int("format")),
				Locale:      cmd.String("locale"),
				MaxUnigrams: int(cmd.Int("max-unigrams")),
				MaxNgrams:   int(cmd.Int("max-ngrams")),
			})
			if err != nil {
				return err
			}
			defer d.Close()

			if seedPath := cmd.String("seed"); seedPath != "" {
				f, err := os.Open(seedPath)
				if err != nil {
					return fmt.Errorf("failed to open seed manifest: %w", err)
				}
				m, err := manifest.Load(f)
				f.Close()
				if err != nil {
					return err
				}
				res, err := manifest.Apply(d, m)
				if err != nil {
					return err
				}
				if err := d.Flush(); err != nil {
					return err
				}
				fmt.Printf("created %s with %d words, %d ngrams (%d skipped)\n",
					path, res.Words, res.Ngrams, res.Skipped)
				return nil
			}
			fmt.Printf("created %s (format %d)\n", path, d.FormatVersion())
			return nil
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show a dictionary's header attributes",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)
			d, err := openReadOnly(cmd.Args().First())
			if err != nil {
				return err
			}
			defer d.Close()

			fmt.Printf("file:    %s\n", d.Path())
			fmt.Printf("format:  %d\n", d.FormatVersion())
			attrs := d.Attributes()
			keys := make([]string, 0, len(attrs))
			for k := range attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%-24s %s\n", k+":", attrs[k])
			}
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show entry counts and capacity usage",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)
			d, err := openReadOnly(cmd.Args().First())
			if err != nil {
				return err
			}
			defer d.Close()

			rows := []struct{ label, query string }{
				{"words", dict.StatUnigramCount},
				{"bigrams", dict.StatBigramCount},
				{"trigrams", dict.StatTrigramCount},
				{"max words", dict.StatMaxUnigramCount},
				{"max ngrams", dict.StatMaxNgramCount},
			}
			for _, row := range rows {
				fmt.Printf("%-12s %s\n", row.label+":", d.Stat(row.query))
			}
			fmt.Printf("%-12s %t\n", "needs gc:", d.NeedsGC(false))
			return nil
		},
	}
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Write the full dictionary content as a YAML manifest",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output path (default stdout)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)
			d, err := openReadOnly(cmd.Args().First())
			if err != nil {
				return err
			}
			defer d.Close()

			m := manifest.Snapshot(d)
			if out := cmd.String("out"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				return manifest.Write(f, m)
			}
			return manifest.Write(os.Stdout, m)
		},
	}
}

func compactCommand() *cli.Command {
	return &cli.Command{
		Name:      "compact",
		Usage:     "Rewrite dictionaries dropping tombstoned entries",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Parallel files (0 means NumCPU)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)
			return forEachDict(ctx, cmd, func(d *dict.Dictionary) (string, error) {
				if err := d.FlushWithGC(); err != nil {
					return "", err
				}
				return fmt.Sprintf("%s words", d.Stat(dict.StatUnigramCount)), nil
			})
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "Rewrite dictionaries in another format version",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "to", Usage: "Target format version", Required: true},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Parallel files (0 means NumCPU)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)
			target := dict.Version(cmd.Int("to"))
			return forEachDict(ctx, cmd, func(d *dict.Dictionary) (string, error) {
				from := d.FormatVersion()
				if err := d.MigrateTo(target); err != nil {
					return "", err
				}
				return fmt.Sprintf("%d -> %d", from, target), nil
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import words from an Android personal dictionary database",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "SQLite database path", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)
			d, err := openUpdatable(cmd.Args().First())
			if err != nil {
				return err
			}
			defer d.Close()

			res, err := importer.FromAndroidDB(cmd.String("db"), d)
			if err != nil {
				return err
			}
			if err := d.Flush(); err != nil {
				return err
			}
			fmt.Printf("imported %d words (%d skipped)\n", res.Imported, res.Skipped)
			return nil
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Count words in text or HTML corpora and write them as entries",
		ArgsUsage: "<file> <corpus>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Usage: "Tokenizer locale (default: the dictionary's)"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Parallel corpus files (0 means NumCPU)"},
			&cli.IntFlag{Name: "max-words", Usage: "Keep only the N most frequent words (0 keeps all)"},
			&cli.IntFlag{Name: "min-count", Usage: "Drop words seen fewer times", Value: 1},
			&cli.BoolFlag{Name: "bigrams", Usage: "Record word pair associations", Value: true},
			&cli.BoolFlag{Name: "trigrams", Usage: "Record word triple associations", Value: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)
			args := cmd.Args().Slice()
			if len(args) < 2 {
				return fmt.Errorf("ingest needs a dictionary file and at least one corpus file")
			}
			d, err := openUpdatable(args[0])
			if err != nil {
				return err
			}
			defer d.Close()

			locale := cmd.String("locale")
			if locale == "" {
				locale = d.Attribute(dict.AttrLocale)
			}
			counts, err := ingest.FromFiles(ctx, args[1:], ingest.NewTokenizer(locale), int(cmd.Int("workers")))
			if err != nil {
				return err
			}
			applied, err := counts.Apply(d, ingest.ApplyOptions{
				MaxWords: int(cmd.Int("max-words")),
				MinCount: int(cmd.Int("min-count")),
				Bigrams:  cmd.Bool("bigrams"),
				Trigrams: cmd.Bool("trigrams"),
			})
			if err != nil {
				return err
			}
			if err := d.Flush(); err != nil {
				return err
			}
			fmt.Printf("ingested %d sentences: %d words, %d bigrams, %d trigrams\n",
				counts.Sentences, applied.Words, applied.Bigrams, applied.Trigrams)
			return nil
		},
	}
}

// forEachDict opens every path argument writable and runs fn over the files
// in parallel, printing one result line per file in argument order.
func forEachDict(ctx context.Context, cmd *cli.Command, fn func(*dict.Dictionary) (string, error)) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("no dictionary files given")
	}
	workers := int(cmd.Int("workers"))
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]string, len(paths))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := openUpdatable(path)
			if err != nil {
				return err
			}
			defer d.Close()
			line, err := fn(d)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			results[i] = line
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, path := range paths {
		fmt.Printf("%s: %s\n", path, results[i])
	}
	return nil
}

func openUpdatable(path string) (*dict.Dictionary, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no dictionary file given")
	}
	return dict.Open(path)
}

func openReadOnly(path string) (*dict.Dictionary, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no dictionary file given")
	}
	return dict.OpenWith(path, dict.SessionOptions{ReadOnly: true})
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RookieDBA/transknowledge/internal/app"
	"github.com/RookieDBA/transknowledge/internal/config"
	"github.com/RookieDBA/transknowledge/internal/logger"
	"github.com/RookieDBA/transknowledge/internal/storage"
	"github.com/RookieDBA/transknowledge/internal/vault"
)

type cliFlags struct {
	configPath string
	save       bool
	filename   string
	force      bool
	jsonOnly   bool
}

// saveInfo is appended to the JSON output when the note is written to the
// vault.
type saveInfo struct {
	Saved    bool   `json:"saved"`
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

func main() {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "transknowledge <url>",
		Short: "Translate a web article into an Obsidian vault note",
		Long: `transknowledge fetches a web article, extracts its readable content,
converts it to Markdown, translates it with an LLM backend, downloads the
article images, and optionally writes the result into an Obsidian vault.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], flags)
		},
	}

	rootCmd.Flags().StringVar(&flags.configPath, "config", "", "path to config file (.env format)")
	rootCmd.Flags().BoolVarP(&flags.save, "save", "s", false, "write the note into the Obsidian vault")
	rootCmd.Flags().StringVarP(&flags.filename, "filename", "f", "", "note filename (default: YYYYMMDD_slug.md)")
	rootCmd.Flags().BoolVar(&flags.force, "force", false, "reprocess even if this URL was translated before")
	rootCmd.Flags().BoolVar(&flags.jsonOnly, "json-only", false, "suppress logs, emit only the JSON result")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(rawurl string, flags *cliFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var log *zap.SugaredLogger
	if flags.jsonOnly {
		log = logger.Nop()
	} else {
		log, err = logger.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync() //nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		NoteTTL:         cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanup,
	})
	if err != nil {
		return fmt.Errorf("open note ledger: %w", err)
	}
	defer store.Close()

	if !flags.force {
		if ref, ok, lerr := store.LookupNote(rawurl); lerr == nil && ok {
			log.Infow("url already translated, skipping", "url", rawurl, "note", ref.Filename, "processed_at", ref.ProcessedAt)
			return emitJSON(map[string]any{
				"skipped":      true,
				"source_url":   rawurl,
				"note":         ref.Filename,
				"processed_at": ref.ProcessedAt.Format(time.RFC3339),
			})
		}
	}

	processor, err := app.NewProcessor(cfg, log)
	if err != nil {
		return err
	}

	rec, err := processor.ProcessURL(ctx, rawurl)
	if err != nil {
		return err
	}

	out := map[string]any{"note": rec}

	if flags.save {
		info := saveInfo{}
		filename := flags.filename
		if filename == "" {
			filename = vault.NoteFilename(rec.OriginalTitle, time.Now())
		}
		path, serr := processor.Writer().Save(rec, filename)
		if serr != nil {
			info.Error = serr.Error()
			log.Errorw("saving note failed", "error", serr)
		} else {
			info.Saved = true
			info.Path = path
			info.Filename = filename
			if rerr := store.RecordNote(rawurl, storage.NoteRef{Filename: filename, ProcessedAt: time.Now()}); rerr != nil {
				log.Warnw("recording note in ledger failed", "error", rerr)
			}
		}
		out["obsidian_save"] = info
	}

	return emitJSON(out)
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

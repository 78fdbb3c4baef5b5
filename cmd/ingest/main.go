package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/history"
	"github.com/greenridge/replen/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "ingest",
		Usage: "Merge snapshot exports from the inbox into the memory bank",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "inbox",
				Usage:   "Directory holding snapshot exports (overrides config)",
				EnvVars: []string{"INGEST_INBOX"},
			},
			&cli.StringFlag{
				Name:    "bank",
				Usage:   "Memory bank directory (overrides config)",
				EnvVars: []string{"INGEST_BANK"},
			},
		},
		Action: runIngest,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("ingest failed")
	}
}

func runIngest(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)

	if inbox := c.String("inbox"); inbox != "" {
		cfg.History.InboxDir = inbox
	}
	if bank := c.String("bank"); bank != "" {
		cfg.History.BankDir = bank
	}

	if err := os.MkdirAll(cfg.History.BankDir, 0o755); err != nil {
		return err
	}

	store, err := history.Open(filepath.Join(cfg.History.BankDir, "memory-bank.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ingestor := history.NewIngestor(store, cfg.History, cfg.Columns)
	summary, err := ingestor.Run(c.Context)
	if err != nil {
		return err
	}

	log.Info().
		Int("scanned", summary.Scanned).
		Int("merged", summary.Merged).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Duration).
		Msg("ingestion batch finished")
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/history"
	"github.com/greenridge/replen/internal/service"
	"github.com/greenridge/replen/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "analyze",
		Usage: "Run the replenishment analysis and write the order-builder workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "inventory",
				Usage:    "Inventory extract (csv or xlsx)",
				Required: true,
				EnvVars:  []string{"ANALYZE_INVENTORY"},
			},
			&cli.StringFlag{
				Name:     "sales",
				Usage:    "Sales extract for the report window",
				Required: true,
				EnvVars:  []string{"ANALYZE_SALES"},
			},
			&cli.StringSliceFlag{
				Name:  "po",
				Usage: "Open purchase-order extract (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "transfers",
				Usage: "Outbound transfer extract; receiving store is read from the filename (repeatable)",
			},
			&cli.StringFlag{
				Name:    "case-ref",
				Usage:   "Supplier case-size reference workbook",
				EnvVars: []string{"ANALYZE_CASE_REF"},
			},
			&cli.Float64Flag{
				Name:  "window-days",
				Usage: "Report window length in days (overrides config)",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output workbook path (default: order-builder-<date>.xlsx in the output dir)",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Score on the report window alone, ignoring the memory bank",
			},
		},
		Action: runAnalyze,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("analyze failed")
	}
}

func runAnalyze(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)

	var store *history.Store
	if !c.Bool("no-history") && cfg.History.BankDir != "" {
		var err error
		store, err = history.Open(filepath.Join(cfg.History.BankDir, "memory-bank.db"))
		if err != nil {
			log.Warn().Err(err).Msg("memory bank unavailable, scoring on report window alone")
		} else {
			defer store.Close()
		}
	}

	out := c.String("out")
	if out == "" {
		name := fmt.Sprintf("order-builder-%s.xlsx", time.Now().Format("2006-01-02"))
		out = filepath.Join(cfg.App.OutputDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	svc := service.NewAnalysisService(cfg, store)
	result, err := svc.Run(c.Context, service.AnalysisInputs{
		InventoryPath:      c.String("inventory"),
		SalesPath:          c.String("sales"),
		PurchaseOrderPaths: c.StringSlice("po"),
		TransferPaths:      c.StringSlice("transfers"),
		CaseRefPath:        c.String("case-ref"),
		OutputPath:         out,
		WindowDays:         c.Float64("window-days"),
	})
	if err != nil {
		return err
	}

	log.Info().Int("rows", len(result.Rows)).Str("workbook", out).Msg("order builder written")
	return nil
}

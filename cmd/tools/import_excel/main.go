package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"asms-api/internal/config"
	"asms-api/internal/database"
	"asms-api/internal/logging"
	"asms-api/pkg/importer"
)

func main() {
	var (
		filePath    = flag.String("file", "", "path to the .xlsx workbook (required)")
		mappingPath = flag.String("mapping", "", "YAML column mapping; built-in aliases when empty")
		sheet       = flag.String("sheet", "", "worksheet name; first sheet when empty")
		dryRun      = flag.Bool("dry-run", false, "validate rows without inserting")
		maxErrors   = flag.Int("max-errors", importer.DefaultMaxErrors, "abort after this many row errors")
		timeout     = flag.Duration("timeout", 5*time.Minute, "overall import timeout")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: import_excel --file=assets.xlsx [--mapping=mapping.yaml] [--sheet=Assets] [--dry-run] [--max-errors=50]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel, os.Stderr)
	log := logger.WithField("file", *filePath)

	var mapping *importer.Mapping
	if *mappingPath != "" {
		m, err := importer.LoadMapping(*mappingPath)
		if err != nil {
			log.WithError(err).Fatal("Invalid mapping")
		}
		mapping = m
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := database.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()

	file, err := os.Open(*filePath)
	if err != nil {
		log.WithError(err).Fatal("Failed to open Excel file")
	}
	defer file.Close()

	summary, err := importer.Import(ctx, pool, file, importer.Options{
		Sheet:     *sheet,
		DryRun:    *dryRun,
		MaxErrors: *maxErrors,
		Mapping:   mapping,
	})
	printSummary(summary)

	switch {
	case errors.Is(err, importer.ErrTooManyErrors):
		log.WithError(err).Error("Import aborted")
		os.Exit(1)
	case err != nil:
		log.WithError(err).Error("Import failed")
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{
		"inserted": summary.Inserted,
		"errors":   summary.Errors,
		"dry_run":  summary.DryRun,
	}).Info("Import finished")
}

func printSummary(s importer.Summary) {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("IMPORT SUMMARY")
	fmt.Println(line)
	fmt.Printf("Sheet:    %s\n", s.Sheet)
	fmt.Printf("Inserted: %d\n", s.Inserted)
	fmt.Printf("Skipped:  %d\n", s.Skipped)
	fmt.Printf("Errors:   %d\n", s.Errors)
	fmt.Printf("Dry run:  %v\n", s.DryRun)

	if len(s.Samples) > 0 {
		fmt.Println("\nError samples:")
		for _, sample := range s.Samples {
			fmt.Printf("  Row %d: %s\n", sample.Row, sample.Message)
		}
	}
}

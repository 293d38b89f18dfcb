// cmd/tools/batch-recommend/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"icfes-recommender/internal/common/config"
	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/ingest"
	"icfes-recommender/internal/recommendation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("batch-recommend", flag.ContinueOnError)
	fs.SetOutput(stderr)

	input := fs.String("input", "-", "Cohort CSV file, - for stdin")
	output := fs.String("output", "-", "Output file, - for stdout")
	format := fs.String("format", "jsonl", "Output format (jsonl, json)")
	comma := fs.String("comma", ",", "CSV field delimiter")
	idColumn := fs.String("id-column", "", "Column holding the student id (default: first of estudiante_id, ESTU_CONSECUTIVO, id)")
	concurrency := fs.Int("concurrency", 4, "Rows processed in parallel")
	logLevel := fs.String("log-level", "warn", "Log level (debug, info, warn, error)")
	configPath := fs.String("config", "", "Service config file whose recommendation.catalog overrides the default programs")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != "jsonl" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}
	delim, size := utf8.DecodeRuneInString(*comma)
	if size == 0 || size != len(*comma) {
		return fmt.Errorf("comma must be a single character, got %q", *comma)
	}

	catalog := recommendation.DefaultCatalog()
	if *configPath != "" {
		cfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if catalog, err = config.BuildCatalog(cfg); err != nil {
			return fmt.Errorf("build catalog: %w", err)
		}
	}

	zapLog := logger.New(*logLevel, "console", "stderr")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	in := stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	cohort, err := ingest.ReadCSV(in, ingest.Options{Comma: delim, IDColumn: *idColumn})
	if err != nil {
		return fmt.Errorf("read cohort: %w", err)
	}
	if len(cohort.MissingAreas) > 0 {
		log.Warn("cohort has no column for some areas, every row will fail", map[string]interface{}{
			"missingAreas": cohort.MissingAreas,
		})
	}

	runner := recommendation.NewBatchRunner(recommendation.NewEngine(catalog), *concurrency, log)
	outcome, err := runner.Run(ctx, cohort.Rows)
	if err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}

	out := stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := write(out, *format, outcome); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Fprintf(stderr, "Processed %d of %d students (%d failed)\n",
		len(outcome.Results), len(cohort.Rows), len(outcome.Failures))
	return nil
}

func write(w io.Writer, format string, outcome *recommendation.BatchOutcome) error {
	enc := json.NewEncoder(w)
	if format == "json" {
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}
	for _, res := range outcome.Results {
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/kerf-planner/internal/config"
	"github.com/eugenenazirov/kerf-planner/internal/cutlist"
	"github.com/eugenenazirov/kerf-planner/internal/cutplan"
	"github.com/eugenenazirov/kerf-planner/internal/export"
	"github.com/eugenenazirov/kerf-planner/internal/logging"
	"github.com/eugenenazirov/kerf-planner/internal/planner"
	"github.com/eugenenazirov/kerf-planner/internal/service"
	"github.com/eugenenazirov/kerf-planner/internal/storage"
)

type options struct {
	configFile      string
	files           []string
	format          string
	pdfDir          string
	stockLength     float64
	kerf            float64
	precision       int
	rejectOversized bool
	verbose         bool
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.WithConsole(), logging.WithLevel(level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		logger.Error("planning failed", zap.Error(err))
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, error) {
	var opts options

	app := kingpin.New("cutplan", "Plan cutting of the pieces in local cut-list files from fixed-length stock")
	app.Flag("config", "Path to YAML configuration file supplying planning defaults").StringVar(&opts.configFile)
	app.Flag("format", "Output format").Short('f').Default("text").EnumVar(&opts.format, "text", "json")
	app.Flag("pdf-dir", "Also write a printable cut sheet per file into this directory").StringVar(&opts.pdfDir)
	app.Flag("stock-length", "Stock segment length").Short('l').Default("-1").Float64Var(&opts.stockLength)
	app.Flag("kerf", "Material lost per cut").Short('k').Default("-1").Float64Var(&opts.kerf)
	app.Flag("precision", "Decimal places used when matching lengths (0-3)").Short('p').Default("-1").IntVar(&opts.precision)
	app.Flag("reject-oversized", "Fail when a piece is longer than the usable stock").BoolVar(&opts.rejectOversized)
	app.Flag("verbose", "Enable debug logging").Short('v').BoolVar(&opts.verbose)
	app.Arg("files", "Cut lists (.json, .yaml, .csv, .xlsx)").Required().ExistingFilesVar(&opts.files)

	if _, err := app.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func (o options) overrides() *config.CLIOverrides {
	out := &config.CLIOverrides{ConfigFile: o.configFile}
	if o.stockLength >= 0 {
		out.StockLength = &o.stockLength
	}
	if o.kerf >= 0 {
		out.Kerf = &o.kerf
	}
	if o.precision >= 0 {
		out.Precision = &o.precision
	}
	return out
}

func run(ctx context.Context, opts options, stdout io.Writer, logger *zap.Logger) error {
	cfg, err := config.Load(opts.overrides())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	docs := make([]cutlist.Document, 0, len(opts.files))
	for _, path := range opts.files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		doc, err := cutlist.Parse(path, data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("cut list loaded", zap.String("file", path), zap.Int("pieces", len(doc.Pieces)))
		docs = append(docs, doc)
	}

	store := storage.NewMemoryStorage(storage.WithMaxPlans(len(docs)))
	if err := store.SetParameters(cfg.Planning); err != nil {
		return err
	}
	svc := service.New(planner.New(), store, logger,
		service.WithRejectOversized(cfg.RejectOversized || opts.rejectOversized))

	plans, err := svc.PlanDocuments(ctx, docs, service.Overrides{})
	if err != nil {
		return err
	}

	if err := writePlans(stdout, opts.format, plans); err != nil {
		return err
	}

	if opts.pdfDir != "" {
		for _, plan := range plans {
			if len(plan.Segments) == 0 {
				logger.Warn("no cut sheet for empty plan", zap.String("name", plan.Name))
				continue
			}
			path, err := writePDFFile(opts.pdfDir, plan)
			if err != nil {
				return err
			}
			logger.Info("cut sheet written", zap.String("path", path))
		}
	}
	return nil
}

func writePlans(w io.Writer, format string, plans []cutplan.Plan) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plans)
	}

	for i, plan := range plans {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := export.WriteText(w, plan); err != nil {
			return err
		}
	}
	return nil
}

func writePDFFile(dir string, plan cutplan.Plan) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create pdf directory: %w", err)
	}

	base := strings.TrimSuffix(plan.Name, filepath.Ext(plan.Name))
	if base == "" {
		base = "cut-plan-" + plan.ID
	}
	path := filepath.Join(dir, base+".pdf")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WritePDF(f, plan); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

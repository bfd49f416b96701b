package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/config"
	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
	"github.com/pymupdf4llm-c/pagestruct/internal/pipeline"
)

var Logger = logger.GetLogger("tomd")

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: tomd [-o outdir] [-workers N] [-config file.yaml] [-keep-raw] <input.pdf|rawdir>\n")
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	outDir := flag.String("o", "", "output directory (default: <input>_json)")
	workers := flag.Int("workers", 0, "parallel page ranges (default: number of CPUs)")
	configPath := flag.String("config", "", "YAML settings file")
	keepRaw := flag.Bool("keep-raw", false, "also write decoded pages as page_NNN.raw.json")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		return 1
	}
	input := flag.Arg(0)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			Logger.Error("loading config", "error", err)
			return 1
		}
	}
	if cfg.LogLevel != "" {
		level, _ := logger.ParseLevel(cfg.LogLevel)
		logger.SetLevel(level)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if *keepRaw {
		cfg.KeepRaw = true
	}
	if *outDir == "" {
		*outDir = strings.TrimSuffix(input, filepath.Ext(input)) + "_json"
	}

	open, err := opener(input)
	if err != nil {
		Logger.Error("cannot read input", "input", input, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := pipeline.Run(ctx, pipeline.Options{
		Open:      open,
		OutputDir: *outDir,
		Workers:   cfg.Workers,
		Params:    cfg.Extract,
		KeepRaw:   cfg.KeepRaw,
	})
	if res == nil {
		Logger.Error("conversion failed", "error", err)
		return 1
	}
	for _, pe := range res.Skipped {
		Logger.Warn("page skipped", "page", pe.Page, "error", pe.Err)
	}
	if err != nil || !res.OK() {
		Logger.Error("conversion incomplete", "written", len(res.Written), "pages", res.Pages, "document", res.Document, "error", err)
		return 1
	}
	Logger.Info("success", "document", res.Document)
	return 0
}

// opener picks the decoder for the input: a directory of raw pages or a PDF.
func opener(input string) (pipeline.Opener, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return func() (bridge.Document, error) {
			dir, err := bridge.OpenRawDir(input)
			if err != nil {
				return nil, err
			}
			return dir, nil
		}, nil
	}
	if !strings.EqualFold(filepath.Ext(input), ".pdf") {
		return nil, fmt.Errorf("%s: %w", input, bridge.ErrUnsupported)
	}
	if n, err := bridge.PageCount(input); err != nil {
		Logger.Warn("pdf failed validation, decoding anyway", "error", err)
	} else {
		Logger.Debug("pdf validated", "pages", n)
	}
	return func() (bridge.Document, error) {
		doc, err := bridge.OpenPDF(input)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}, nil
}

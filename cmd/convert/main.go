package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tomide-ak/invoice-bridge/internal/pipeline"
	"github.com/tomide-ak/invoice-bridge/internal/storage"
)

// convert runs one document through the pipeline without a database or a
// correction advisor, for local inspection of converter output.
func main() {
	var (
		input  = flag.String("in", "", "path to the source XML invoice (required)")
		outDir = flag.String("out", "out", "directory for uploaded and converted artifacts")
		strict = flag.Bool("strict", false, "fail on validation warnings")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: convert -in invoice.xml [-out dir] [-strict]")
		os.Exit(2)
	}

	content, err := os.ReadFile(*input)
	if err != nil {
		logger.Error("read input failed", "path", *input, "error", err)
		os.Exit(1)
	}

	store, err := storage.NewLocalStore(
		filepath.Join(*outDir, "uploads"),
		filepath.Join(*outDir, "converted"),
		logger,
	)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}

	orchestrator := pipeline.New(store, nil, nil, logger)
	res, err := orchestrator.Process(context.Background(), pipeline.Submission{
		Filename:    filepath.Base(*input),
		ContentType: "text/xml",
		Content:     content,
		Strict:      *strict,
	})
	if err != nil {
		var uploadErr *pipeline.UploadError
		if errors.As(err, &uploadErr) {
			fmt.Fprintln(os.Stderr, "rejected:", uploadErr.Message)
			os.Exit(2)
		}
		logger.Error("processing failed", "error", err)
		os.Exit(1)
	}

	if !res.Success {
		fmt.Fprintln(os.Stderr, "conversion failed:", res.EDIMessage)
		if res.ErrorSummary != nil {
			for _, action := range res.ErrorSummary.SuggestedActions {
				fmt.Fprintln(os.Stderr, "  -", action)
			}
		}
		os.Exit(1)
	}

	edi, err := store.Read(res.EDILocator)
	if err != nil {
		logger.Error("read converted output failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(edi))
}

// Command stylize merges Tableau-exported decks into a brand template,
// titling and styling every dashboard screenshot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	pptx "github.com/gmfennema/tableau-power-point-stylizer"
	"github.com/gmfennema/tableau-power-point-stylizer/config"
	"github.com/gmfennema/tableau-power-point-stylizer/deck"
	"github.com/gmfennema/tableau-power-point-stylizer/ocr"
	"github.com/gmfennema/tableau-power-point-stylizer/title"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	_ = godotenv.Load()

	batch := config.Default()
	if path := configPath(args); path != "" {
		if err := config.Load(path, &batch); err != nil {
			fmt.Fprintf(stderr, "config: %v\n", err)
			return 1
		}
	}
	batch.ApplyEnv()

	fs := flag.NewFlagSet("stylize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var inputs config.ListFlag
	fs.Var(&inputs, "input", "Input PPTX file; repeat or separate with commas (an existing path is taken whole)")
	fs.Var(&inputs, "i", "Shorthand for -input")
	fs.StringVar(&batch.Template, "template", batch.Template, "Template PPTX file")
	fs.StringVar(&batch.Template, "t", batch.Template, "Shorthand for -template")
	fs.StringVar(&batch.Output, "output", batch.Output, "Output PPTX file")
	fs.StringVar(&batch.Output, "o", batch.Output, "Shorthand for -output")
	fs.StringVar(&batch.OCR.Engine, "ocr", batch.OCR.Engine, "OCR engine: tesseract, documentai or none")
	fs.String("config", "", "YAML file with default settings")
	var layouts config.ListFlag
	fs.Var(&layouts, "layout", "Preferred template layout name; repeat for fallbacks")
	verbose := fs.Bool("verbose", false, "Log every processing step")
	version := fs.Bool("version", false, "Print the version and exit")
	batch.Style.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *version {
		fmt.Fprintf(stdout, "stylize %s\n", pptx.Version)
		return 0
	}

	// Inputs given on the command line replace those from the config file.
	if len(inputs) > 0 {
		batch.Inputs = inputs
	}
	if len(layouts) > 0 {
		batch.Layouts = layouts
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if err := batch.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		fs.Usage()
		return 1
	}

	if err := stylize(ctx, batch, logger); err != nil {
		logger.Error("stylize failed", "error", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %s\n", batch.Output)
	return 0
}

func stylize(ctx context.Context, batch config.Batch, logger *slog.Logger) error {
	rec, err := ocr.New(ctx, batch.OCR)
	if err != nil {
		return fmt.Errorf("failed to set up OCR: %w", err)
	}
	if c, ok := rec.(io.Closer); ok {
		defer c.Close()
	}

	tpl, err := pptx.OpenTemplate(batch.Template)
	if err != nil {
		return fmt.Errorf("failed to open template: %w", err)
	}

	in := make([]deck.Input, len(batch.Inputs))
	for i, path := range batch.Inputs {
		in[i] = deck.FileInput(path)
	}

	a := &deck.Assembler{
		Template: tpl,
		Style:    batch.Style,
		Titles:   &title.Engine{Recognizer: rec},
		Layouts:  batch.Layouts,
		Logger:   logger,
	}
	report, err := a.Run(ctx, in)
	if err != nil {
		return err
	}
	if err := a.Save(batch.Output); err != nil {
		return fmt.Errorf("failed to save output: %w", err)
	}
	logger.Info("batch complete", "slides", len(report.Slides), "revision", report.Revision)
	return nil
}

// configPath finds the -config value ahead of flag parsing, so the file can
// supply flag defaults.
func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopapp/loop-vision/internal/config"
	"github.com/loopapp/loop-vision/internal/report"
	"github.com/loopapp/loop-vision/internal/storage"
	"github.com/loopapp/loop-vision/internal/vision"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

type options struct {
	imagePath string
	apiKey    string
	output    string
	provider  string
	model     string
	baseURL   string
	dsn       string
	timeout   time.Duration
	verbose   bool
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("loop-vision", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: loop-vision [flags] <image-path>\n\nLOOP AI Vision Service\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.apiKey, "api-key", "", "model API key (default from config or GEMINI_API_KEY/OPENAI_API_KEY)")
	fs.StringVar(&opts.output, "output", "", "write the analysis as JSON to this file")
	fs.StringVar(&opts.output, "o", "", "shorthand for -output")
	fs.StringVar(&opts.provider, "provider", "", "model provider: gemini or openai")
	fs.StringVar(&opts.model, "model", "", "model name (provider default if empty)")
	fs.StringVar(&opts.baseURL, "base-url", "", "override the provider API endpoint")
	fs.StringVar(&opts.dsn, "db", "", "record the item in this ledger (SQLite path or postgres:// URL)")
	fs.DurationVar(&opts.timeout, "timeout", 0, "timeout for the model call (0 = none)")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	// Allow flags after the image path too
	if fs.NArg() > 0 {
		opts.imagePath = fs.Arg(0)
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return nil, err
		}
	}
	if opts.imagePath == "" {
		fs.Usage()
		return nil, errors.New("image path is required")
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return &opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: stderr}).Level(level)

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	applyFlags(cfg, opts)

	if !vision.IsSupportedImageFile(opts.imagePath) {
		fmt.Fprintf(stderr, "Error: Invalid image file: %s\n", opts.imagePath)
		return 1
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := analyze(ctx, cfg, opts, stdout); err != nil {
		var verr *vision.Error
		if errors.As(err, &verr) {
			fmt.Fprintf(stderr, "AI Vision Error: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "Unexpected error: %v\n", err)
		}
		return 1
	}
	return 0
}

func applyFlags(cfg *config.Config, opts *options) {
	if opts.provider != "" && opts.provider != cfg.Provider.Name {
		cfg.Provider.Name = opts.provider
		// The configured key belongs to the other provider
		cfg.Provider.APIKey = config.ProviderAPIKey(opts.provider)
	}
	if opts.apiKey != "" {
		cfg.Provider.APIKey = opts.apiKey
	}
	if opts.model != "" {
		cfg.Provider.Model = opts.model
	}
	if opts.baseURL != "" {
		cfg.Provider.BaseURL = opts.baseURL
	}
	if opts.dsn != "" {
		cfg.Storage.DSN = opts.dsn
	}
	if opts.timeout > 0 {
		cfg.Provider.RequestTimeout = opts.timeout
	}
}

func analyze(ctx context.Context, cfg *config.Config, opts *options, stdout io.Writer) error {
	gateway, err := vision.NewGateway(ctx, cfg.Provider.Name, vision.GatewayOptions{
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
		BaseURL: cfg.Provider.BaseURL,
	})
	if err != nil {
		return err
	}

	analyzer := vision.NewAnalyzer(gateway,
		vision.WithGenerationConfig(cfg.Generation.Vision()),
		vision.WithTimeout(cfg.Provider.RequestTimeout),
	)

	fmt.Fprintf(stdout, "Analyzing %s...\n", opts.imagePath)
	result, err := analyzer.AnalyzeImage(ctx, opts.imagePath)
	if err != nil {
		return err
	}

	if err := report.Print(stdout, result); err != nil {
		return err
	}

	if opts.output != "" {
		if err := report.SaveJSON(opts.output, result); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nResults saved to: %s\n", opts.output)
	}

	if cfg.Storage.DSN != "" {
		id, err := record(ctx, cfg.Storage.DSN, opts.imagePath, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Recorded item: %s\n", id)
	}
	return nil
}

func record(ctx context.Context, dsn, imagePath string, result *vision.AIAnalysis) (string, error) {
	store, err := storage.Open(ctx, dsn)
	if err != nil {
		return "", err
	}
	defer store.Close()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	item := storage.NewItem(result, storage.ImageHash(data))
	if err := store.Record(ctx, item); err != nil {
		return "", err
	}
	return item.ID, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/loopapp/loop-vision/internal/config"
	"github.com/loopapp/loop-vision/internal/export"
	"github.com/loopapp/loop-vision/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var dsn, xlsxPath string
	var limit int

	flag.StringVar(&dsn, "db", "", "ledger DSN (default from config)")
	flag.IntVar(&limit, "limit", 20, "number of recent items")
	flag.StringVar(&xlsxPath, "xlsx", "", "export the items to this workbook instead of printing them")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	config.LoadEnvFile()
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		dsn = cfg.Storage.DSN
	}
	if dsn == "" {
		fmt.Fprintf(os.Stderr, "Usage: items -db <path|postgres-url> [-limit N] [-xlsx out.xlsx]\n")
		fmt.Fprintf(os.Stderr, "       or set LOOP_VISION_STORAGE_DSN\n")
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	items, err := store.List(ctx, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing items: %v\n", err)
		os.Exit(1)
	}

	if xlsxPath != "" {
		f, err := os.Create(xlsxPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", xlsxPath, err)
			os.Exit(1)
		}
		if err := export.WriteItemsXLSX(f, items); err != nil {
			f.Close()
			fmt.Fprintf(os.Stderr, "Error writing workbook: %v\n", err)
			os.Exit(1)
		}
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing workbook: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d items to %s\n", len(items), xlsxPath)
		return
	}

	printItems(os.Stdout, items)
}

func printItems(w io.Writer, items []storage.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tID\tTITLE\tCATEGORY\tCONDITION\tVALUE")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f %s\n",
			item.CreatedAt.Local().Format("2006-01-02 15:04"),
			item.ID,
			item.Title,
			item.Category,
			item.Condition,
			item.EstimatedValue,
			item.Currency,
		)
	}
	tw.Flush()
}

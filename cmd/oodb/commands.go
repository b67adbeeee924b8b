package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/KilimcininKorOglu/oodb/internal/config"
	"github.com/KilimcininKorOglu/oodb/internal/storage/engine"
)

// storeFlags are the flags shared by the commands that open a store.
type storeFlags struct {
	configFile *string
	dataDir    *string
	pageSize   *int
	logLevel   *string
	help       *bool
	helpLong   *bool
}

func addStoreFlags(fs *flag.FlagSet) *storeFlags {
	return &storeFlags{
		configFile: fs.String("config", "", "Path to configuration file"),
		dataDir:    fs.String("data-dir", "", "Data directory path (overrides config)"),
		pageSize:   fs.Int("page-size", 0, "Page size in bytes (overrides config)"),
		logLevel:   fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)"),
		help:       fs.Bool("h", false, "Show help message"),
		helpLong:   fs.Bool("help", false, "Show help message"),
	}
}

func (f *storeFlags) wantHelp() bool {
	return *f.help || *f.helpLong
}

// loadConfig reads the configuration file, if any, and applies the
// command line overrides.
func (f *storeFlags) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if *f.configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(*f.configFile); err != nil {
			return nil, err
		}
	}

	if *f.dataDir != "" {
		abs, err := filepath.Abs(*f.dataDir)
		if err != nil {
			return nil, err
		}
		cfg.Storage.DataDir = abs
	}
	if *f.pageSize != 0 {
		cfg.Storage.PageSize = *f.pageSize
	}
	if *f.logLevel != "" {
		cfg.Logging.Level = *f.logLevel
	}

	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}

// openStore opens the configured store.
func (f *storeFlags) openStore(readOnly bool) (*engine.Store, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	storageOpts, err := cfg.Storage.Options()
	if err != nil {
		return nil, err
	}

	opts := engine.DefaultOptions()
	opts.Storage = storageOpts.WithReadOnly(readOnly)
	if !readOnly {
		opts.Storage = opts.Storage.WithMmap(false)
	}
	opts.CreateIfNotExists = !readOnly
	opts.Logger = cfg.Logging.NewLogger()

	return engine.Open(cfg.Storage.DataDir, opts)
}

// initCmd handles the init command.
func initCmd(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sf := addStoreFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if sf.wantHelp() {
		printInitUsage(os.Stdout)
		return 0
	}

	store, err := sf.openStore(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return 1
	}
	defer store.Close()

	if _, err := store.Commit(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing store: %v\n", err)
		return 1
	}

	ch := store.Channel()
	fmt.Printf("Store initialized\n")
	fmt.Printf("  Page size:  %s\n", humanize.IBytes(uint64(ch.PageSize())))
	fmt.Printf("  Pages:      %s\n", humanize.Comma(int64(ch.PageCount())))
	fmt.Printf("  Generation: %d\n", ch.Generation()-1)

	return 0
}

// statsCmd handles the stats command.
func statsCmd(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sf := addStoreFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if sf.wantHelp() {
		printStatsUsage(os.Stdout)
		return 0
	}

	store, err := sf.openStore(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return 1
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading statistics: %v\n", err)
		return 1
	}

	h := store.Channel().Header()
	fmt.Printf("generation: %d, tx %d, %s in %s pages\n",
		h.Generation, h.TxID,
		humanize.IBytes(uint64(h.PageCount)*uint64(h.PageSize)),
		humanize.Comma(int64(h.PageCount)))
	fmt.Print(stats)

	return 0
}

// verifyCmd handles the verify command.
func verifyCmd(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sf := addStoreFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if sf.wantHelp() {
		printVerifyUsage(os.Stdout)
		return 0
	}

	store, err := sf.openStore(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return 1
	}
	defer store.Close()

	startTime := time.Now()
	if err := store.Verify(); err != nil {
		fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
		return 1
	}

	fmt.Printf("Store is consistent (%v)\n", time.Since(startTime).Round(time.Millisecond))
	return 0
}

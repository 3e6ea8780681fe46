// Package main is the entry point for the corpusvault CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corpusvault/corpusvault/internal/config"
	"github.com/corpusvault/corpusvault/internal/enrich"
	"github.com/corpusvault/corpusvault/internal/logging"
	"github.com/corpusvault/corpusvault/internal/pipeline"
	"github.com/corpusvault/corpusvault/internal/rainbow"
	"github.com/corpusvault/corpusvault/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the exit code.
// 0 = clean, 1 = ingest completed with row-level errors, 2 = error.
func run(args []string) int {
	fs := flag.NewFlagSet("corpusvault", flag.ContinueOnError)

	var (
		configPath  string
		quietFlag   bool
		versionFlag bool
	)
	fs.StringVar(&configPath, "config", ".corpusvault.yaml", "path to project config")
	fs.BoolVar(&quietFlag, "quiet", false, "suppress non-error output")
	fs.BoolVar(&quietFlag, "q", false, "suppress non-error output (shorthand)")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: corpusvault <command> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  ingest <path>         Ingest a dump file into the store\n")
		fmt.Fprintf(os.Stderr, "  export <dest>         Export a dump-cleared copy of the store\n")
		fmt.Fprintf(os.Stderr, "  import <src-db>       Import another store's contents into this one\n")
		fmt.Fprintf(os.Stderr, "  rainbow sync          Rebuild the rainbow table from changed wordlists\n")
		fmt.Fprintf(os.Stderr, "  rainbow watch         Watch the wordlist directory and rebuild on change\n")
		fmt.Fprintf(os.Stderr, "  version               Print version and exit\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if versionFlag {
		fmt.Printf("corpusvault %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		fs.Usage()
		return 2
	}

	log := logging.Default()
	if quietFlag {
		log = logging.New(os.Stderr, logging.LevelError)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading %s: %v\n", configPath, err)
		return 2
	}

	command := remaining[0]
	switch command {
	case "ingest":
		return runIngest(remaining[1:], cfg, log, quietFlag)
	case "export":
		return runExport(remaining[1:], cfg)
	case "import":
		return runImport(remaining[1:], cfg)
	case "rainbow":
		return runRainbow(remaining[1:], cfg, log)
	case "version":
		fmt.Printf("corpusvault %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		fs.Usage()
		return 2
	}
}

func runIngest(args []string, cfg config.Config, log *logging.Logger, quiet bool) int {
	ingestFS := flag.NewFlagSet("ingest", flag.ContinueOnError)
	var (
		breachDate   string
		breachTarget string
		jsonOutput   bool
	)
	ingestFS.StringVar(&breachDate, "breach-date", "", "breach date recorded against this dump")
	ingestFS.StringVar(&breachTarget, "breach-target", "", "breach target recorded against this dump")
	ingestFS.BoolVar(&jsonOutput, "json", false, "print the run summary as JSON")
	if err := ingestFS.Parse(args); err != nil {
		return 2
	}
	if ingestFS.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: corpusvault ingest <path> [flags]")
		return 2
	}
	target := ingestFS.Arg(0)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening store %s: %v\n", cfg.Store.Path, err)
		return 2
	}
	defer st.Close()

	rt := rainbow.New(cfg.Rainbow.WordlistDir, store.NewRainbowAdapter(st))
	ctx := context.Background()
	if _, err := rt.Sync(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: syncing rainbow table: %v\n", err)
		return 2
	}

	var breach *enrich.BreachClient
	if cfg.Enrichment.BreachBaseURL != "" {
		timeout := time.Duration(cfg.Enrichment.TimeoutMillis) * time.Millisecond
		breach = enrich.NewBreachClient(cfg.Enrichment.BreachBaseURL, cfg.Enrichment.BreachAPIKey, timeout)
	}

	runner := pipeline.NewRunner(st, rt, breach, cfg, log)

	if !quiet {
		fmt.Printf("corpusvault %s — ingesting %s\n", version, target)
	}

	summary, err := runner.Run(ctx, target, breachDate, breachTarget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: ingest failed: %v\n", err)
		return 2
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "error: encoding summary: %v\n", err)
			return 2
		}
	} else if !quiet {
		printSummary(summary)
	}

	if len(summary.Errors) > 0 {
		return 1
	}
	return 0
}

func printSummary(s pipeline.Summary) {
	if s.Metadata.Reingested {
		fmt.Printf("[dump %d] already seen, last_seen advanced only\n", s.Metadata.DumpID)
		return
	}
	fmt.Printf("[dump %d] %d rows processed, %d unique addresses\n", s.Metadata.DumpID, s.RowsProcessed, s.UniqueAddresses)
	fmt.Printf("[credentials] %d hashed, %d weak\n", s.HashedCredentialsDetected, s.WeakPasswordsFound)
	if s.BreachedAddresses > 0 {
		fmt.Printf("[breach] %d addresses matched a known breach\n", s.BreachedAddresses)
	}
	for _, g := range s.DetectionGroups {
		fmt.Printf("[pii] %-20s %d\n", g.NPIType, g.Count)
	}
	for _, e := range s.Errors {
		fmt.Printf("[error] %s\n", e)
	}
}

func runExport(args []string, cfg config.Config) int {
	exportFS := flag.NewFlagSet("export", flag.ContinueOnError)
	if err := exportFS.Parse(args); err != nil {
		return 2
	}
	if exportFS.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: corpusvault export <dest>")
		return 2
	}
	dest := exportFS.Arg(0)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening store %s: %v\n", cfg.Store.Path, err)
		return 2
	}
	defer st.Close()

	exported, err := st.Export(dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: exporting to %s: %v\n", dest, err)
		return 2
	}
	defer exported.Close()

	fmt.Printf("exported dump-cleared copy to %s\n", dest)
	return 0
}

func runImport(args []string, cfg config.Config) int {
	importFS := flag.NewFlagSet("import", flag.ContinueOnError)
	if err := importFS.Parse(args); err != nil {
		return 2
	}
	if importFS.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: corpusvault import <src-db>")
		return 2
	}
	srcPath := importFS.Arg(0)

	dest, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening store %s: %v\n", cfg.Store.Path, err)
		return 2
	}
	defer dest.Close()

	src, err := store.Open(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening source store %s: %v\n", srcPath, err)
		return 2
	}
	defer src.Close()

	if err := dest.Import(src, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "error: importing from %s: %v\n", srcPath, err)
		return 2
	}

	fmt.Printf("imported %s into %s\n", srcPath, cfg.Store.Path)
	return 0
}

func runRainbow(args []string, cfg config.Config, log *logging.Logger) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: corpusvault rainbow <sync|watch>")
		return 2
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening store %s: %v\n", cfg.Store.Path, err)
		return 2
	}
	defer st.Close()

	rt := rainbow.New(cfg.Rainbow.WordlistDir, store.NewRainbowAdapter(st))

	switch args[0] {
	case "sync":
		rebuilt, err := rt.Sync(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: syncing rainbow table: %v\n", err)
			return 2
		}
		for _, name := range rebuilt {
			fmt.Printf("[rebuilt] %s\n", name)
		}
		fmt.Printf("synced %d wordlist(s)\n", len(rebuilt))
		return 0

	case "watch":
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if _, err := rt.Sync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: initial sync: %v\n", err)
			return 2
		}
		log.Infof("watching %s for wordlist changes", cfg.Rainbow.WordlistDir)

		err := rt.Watch(ctx, 500*time.Millisecond, func(rebuilt []string) {
			log.Infof("rebuilt %d wordlist(s): %v", len(rebuilt), rebuilt)
		})
		if err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "error: watching wordlists: %v\n", err)
			return 2
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown rainbow subcommand: %s\n", args[0])
		return 2
	}
}

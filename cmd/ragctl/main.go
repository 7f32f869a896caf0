// Command ragctl ingests catalogues into the fragment store and queries them
// from the terminal.
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

	"github.com/upb/catalog-rag/app"
	"github.com/upb/catalog-rag/config"
	"github.com/upb/catalog-rag/internal/observability"
)

const usage = `USAGE:
    ragctl <command> [options]

COMMANDS:
    ingest    Extract, embed and store PDF catalogues
    import    Load pre-embedded fragments from a JSONL file
    ask       Ask questions against a tenant's catalogues
    stats     Show what a tenant has stored
    wipe      Delete a tenant's fragments

Run "ragctl <command> -h" for command options.
Configuration comes from the environment, .env and CONFIG_FILE.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	cmd, ok := commands[command]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger, err := observability.NewLogger(level, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	e := &env{
		ingester:      deps.Ingest,
		answerer:      deps.Pipeline,
		store:         deps.Store,
		in:            os.Stdin,
		out:           os.Stdout,
		errOut:        os.Stderr,
		progress:      progressEnabled(),
		defaultTenant: cfg.Server.DefaultTenant,
	}
	return cmd(ctx, e, args)
}

// env carries what a command needs. Tests build it with fakes.
type env struct {
	ingester      ingester
	answerer      answerer
	store         tenantStore
	in            io.Reader
	out           io.Writer
	errOut        io.Writer
	progress      bool
	defaultTenant string
}

type commandFunc func(ctx context.Context, e *env, args []string) error

var commands = map[string]commandFunc{
	"ingest": runIngest,
	"import": runImport,
	"ask":    runAsk,
	"stats":  runStats,
	"wipe":   runWipe,
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/services/ingest"
	"github.com/upb/catalog-rag/services/pipeline"
)

type ingester interface {
	IngestFile(ctx context.Context, path, tenantID string, progress ingest.ProgressFunc) (*ingest.Report, error)
	ImportJSONL(ctx context.Context, r io.Reader, tenantID string) (*ingest.Report, error)
}

type answerer interface {
	Run(ctx context.Context, query, tenantID string) (*pipeline.Result, error)
}

type tenantStore interface {
	Stats(ctx context.Context, tenantID string) (*models.TenantStats, error)
	Delete(ctx context.Context, tenantID string, sourceDocuments ...string) (int, error)
}

var errMissingTenant = errors.New("tenant is required (use -tenant or DEFAULT_TENANT_ID)")

// stringList collects a repeatable string flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func newFlagSet(e *env, name, synopsis string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.errOut)
	tenant := fs.String("tenant", e.defaultTenant, "tenant id")
	fs.Usage = func() {
		fmt.Fprintf(e.errOut, "USAGE:\n    ragctl %s\n\nOPTIONS:\n", synopsis)
		fs.PrintDefaults()
	}
	return fs, tenant
}

func runIngest(ctx context.Context, e *env, args []string) error {
	fs, tenant := newFlagSet(e, "ingest", "ingest [options] <file|dir>...")
	glob := fs.String("glob", defaultIngestGlob, "pattern for files inside directories")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenant == "" {
		return errMissingTenant
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no files given")
	}

	files, err := collectFiles(fs.Args(), *glob)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(e.out, "No files matched %q\n", *glob)
		return nil
	}

	var pages, chunks, inserted, failed int
	for _, path := range files {
		var progress ingest.ProgressFunc
		var bar *ingestProgress
		if e.progress {
			bar = newIngestProgress(e.errOut, filepath.Base(path))
			progress = bar.Update
		}

		report, err := e.ingester.IngestFile(ctx, path, *tenant, progress)
		if bar != nil {
			bar.Finish()
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			fmt.Fprintf(e.out, "FAILED %s: %v\n", path, err)
			continue
		}

		pages += report.Pages
		chunks += report.TextChunks
		inserted += report.Inserted
		fmt.Fprintf(e.out, "%s: %d pages, %d chunks, %d inserted\n", filepath.Base(path), report.Pages, report.TextChunks, report.Inserted)
	}

	fmt.Fprintf(e.out, "\nTenant %s: %d files, %d pages, %d chunks, %d fragments inserted\n", *tenant, len(files)-failed, pages, chunks, inserted)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func runImport(ctx context.Context, e *env, args []string) error {
	fs, tenant := newFlagSet(e, "import", "import [options] <file.jsonl|->")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenant == "" {
		return errMissingTenant
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one input is required")
	}

	r := e.in
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	report, err := e.ingester.ImportJSONL(ctx, r, *tenant)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Imported %d text and %d image fragments from %d sources for tenant %s (%d replaced)\n",
		report.TextChunks, report.Images, len(report.Sources), *tenant, report.Deleted)
	return nil
}

func runAsk(ctx context.Context, e *env, args []string) error {
	fs, tenant := newFlagSet(e, "ask", "ask [options] [question]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenant == "" {
		return errMissingTenant
	}

	if fs.NArg() > 0 {
		return ask(ctx, e, strings.Join(fs.Args(), " "), *tenant)
	}

	fmt.Fprintf(e.out, "Active Tenant: %s\nType 'exit' or 'quit' to stop.\n", *tenant)
	scanner := bufio.NewScanner(e.in)
	for {
		fmt.Fprint(e.out, "\nMy Question: ")
		if !scanner.Scan() {
			fmt.Fprintln(e.out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := ask(ctx, e, query, *tenant); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(e.out, "Error during query processing: %v\n", err)
		}
	}
}

func ask(ctx context.Context, e *env, query, tenant string) error {
	stop := startSpinner(e.progress, e.errOut, "thinking")
	result, err := e.answerer.Run(ctx, query, tenant)
	stop()
	if err != nil {
		return err
	}
	printResult(e.out, result)
	return nil
}

// printResult writes the answer, then text sources once per (document, page),
// then every image source.
func printResult(w io.Writer, result *pipeline.Result) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "%s\nANSWER:\n\n%s\n%s\n", rule, result.Answer, rule)

	if len(result.TextSources) == 0 {
		fmt.Fprintln(w, "\nNo strong textual sources found.")
	} else {
		fmt.Fprintln(w, "\nTEXT SOURCES:")
		type key struct {
			doc  string
			page int
		}
		seen := make(map[key]struct{})
		for _, src := range result.TextSources {
			k := key{src.SourceDocument, src.PageNumber}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			fmt.Fprintf(w, "- %s | Page %d | Score: %.4f\n", src.SourceDocument, src.PageNumber, src.Score)
		}
	}

	if len(result.ImageSources) == 0 {
		fmt.Fprintln(w, "\nNo relevant images found.")
		return
	}
	fmt.Fprintf(w, "\nIMAGE SOURCES (%d found):\n", len(result.ImageSources))
	for _, img := range result.ImageSources {
		fmt.Fprintf(w, "- %s | Page %d\n  Image Path: %s\n", img.SourceDocument, img.PageNumber, img.ImagePath)
	}
}

func runStats(ctx context.Context, e *env, args []string) error {
	fs, tenant := newFlagSet(e, "stats", "stats [options]")
	asJSON := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenant == "" {
		return errMissingTenant
	}

	stats, err := e.store.Stats(ctx, *tenant)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(e.out, "Tenant:    %s\n", stats.TenantID)
	fmt.Fprintf(e.out, "Fragments: %6d\n", stats.Total)
	fmt.Fprintf(e.out, "Text:      %6d\n", stats.TextCount)
	fmt.Fprintf(e.out, "Images:    %6d\n", stats.ImageCount)
	fmt.Fprintf(e.out, "Pages:     %6d\n", len(stats.Pages))
	if len(stats.SourceDocuments) > 0 {
		fmt.Fprintln(e.out, "\nDocuments:")
		for _, doc := range stats.SourceDocuments {
			fmt.Fprintf(e.out, "- %s\n", doc)
		}
	}
	return nil
}

func runWipe(ctx context.Context, e *env, args []string) error {
	fs, tenant := newFlagSet(e, "wipe", "wipe [options]")
	var sources stringList
	fs.Var(&sources, "source", "source document to delete (repeatable)")
	yes := fs.Bool("yes", false, "confirm deleting every fragment of the tenant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenant == "" {
		return errMissingTenant
	}
	if len(sources) == 0 && !*yes {
		return fmt.Errorf("refusing to wipe tenant %s without -yes", *tenant)
	}

	deleted, err := e.store.Delete(ctx, *tenant, sources...)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintf(e.out, "Deleted %d fragments for tenant %s\n", deleted, *tenant)
	} else {
		fmt.Fprintf(e.out, "Deleted %d fragments of %s for tenant %s\n", deleted, strings.Join(sources, ", "), *tenant)
	}
	return nil
}

// Command pdfmark burns a saved annotation session into a PDF without the
// interactive editor.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wudi/pdfmark/editor"
	"github.com/wudi/pdfmark/export"
	"github.com/wudi/pdfmark/observability"
	"github.com/wudi/pdfmark/storage"
	"github.com/wudi/pdfmark/tool"
)

type options struct {
	in       string
	out      string
	session  string
	store    string
	defaults string
	hide     string
	report   bool
	verbose  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfmark: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pdfmark: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pdfmark", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdfmark [flags] -in <pdf>\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.in, "in", "", "PDF to annotate (may also be given as the only argument)")
	fs.StringVar(&opts.out, "out", "", "Output path (default <in>-annotated.pdf)")
	fs.StringVar(&opts.session, "session", "", "Session file to apply")
	fs.StringVar(&opts.store, "store", "", "Directory holding the session history; the latest session of the document is applied")
	fs.StringVar(&opts.defaults, "defaults", "", "YAML file with tool defaults")
	fs.StringVar(&opts.hide, "hide", "", "Pages to hide before export, e.g. 2-4,7")
	fs.BoolVar(&opts.report, "report", false, "Print the export report as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "Log to stderr")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.in == "" && fs.NArg() == 1 {
		opts.in = fs.Arg(0)
	}
	if opts.in == "" || fs.NArg() > 1 {
		fs.Usage()
		return options{}, fmt.Errorf("missing pdf path")
	}
	if opts.session == "" && opts.store == "" {
		return options{}, fmt.Errorf("one of -session or -store is required")
	}
	if opts.out == "" {
		opts.out = strings.TrimSuffix(opts.in, filepath.Ext(opts.in)) + "-annotated.pdf"
	}
	return opts, nil
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	doc, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}

	var log observability.Logger = observability.NopLogger{}
	if opts.verbose {
		log = observability.NewSlogLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	edOpts := []editor.Option{
		editor.WithLogger(log),
		editor.WithTracer(observability.LogTracer{Logger: log}),
	}
	if opts.store != "" {
		dir, err := storage.NewDir(opts.store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		edOpts = append(edOpts, editor.WithStorage(dir))
	}
	if opts.defaults != "" {
		f, err := os.Open(opts.defaults)
		if err != nil {
			return fmt.Errorf("open defaults: %w", err)
		}
		d, err := tool.LoadDefaults(f)
		f.Close()
		if err != nil {
			return err
		}
		edOpts = append(edOpts, editor.WithToolDefaults(d))
	}

	ed := editor.New(edOpts...)
	defer ed.Close(ctx)
	if err := ed.Load(ctx, filepath.Base(opts.in), doc); err != nil {
		return fmt.Errorf("load pdf: %w", err)
	}

	if opts.session != "" {
		data, err := os.ReadFile(opts.session)
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}
		if err := ed.ImportSession(ctx, data); err != nil {
			return fmt.Errorf("apply session: %w", err)
		}
	} else {
		ok, err := ed.ResumeSession(ctx)
		if err != nil {
			return fmt.Errorf("resume session: %w", err)
		}
		if !ok {
			return fmt.Errorf("no saved session for %s", opts.in)
		}
	}
	if opts.hide != "" {
		if err := ed.HidePages(opts.hide, true); err != nil {
			return fmt.Errorf("hide pages: %w", err)
		}
	}

	res, err := ed.Export(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(opts.out, res.Document, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", opts.out, err)
	}
	if opts.report {
		return emitReport(stdout, opts.out, res.Report)
	}
	fmt.Fprintf(stdout, "%s: %d pages, %d annotations skipped\n", opts.out, res.Report.Pages, len(res.Report.Skipped))
	return nil
}

type stageSummary struct {
	Name       string `json:"name"`
	Items      int    `json:"items"`
	DurationMS int64  `json:"durationMs"`
	Bytes      int    `json:"bytes,omitempty"`
}

type skipSummary struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

type reportSummary struct {
	Output  string         `json:"output"`
	Pages   int            `json:"pages"`
	Stages  []stageSummary `json:"stages"`
	Skipped []skipSummary  `json:"skipped,omitempty"`
}

func emitReport(w io.Writer, out string, r export.Report) error {
	sum := reportSummary{Output: out, Pages: r.Pages}
	for _, st := range r.Stages {
		sum.Stages = append(sum.Stages, stageSummary{Name: st.Name, Items: st.Items, DurationMS: st.Duration.Milliseconds(), Bytes: st.Bytes})
	}
	for _, s := range r.Skipped {
		sum.Skipped = append(sum.Skipped, skipSummary{ID: s.ID, Kind: s.Kind.String(), Reason: s.Reason.String()})
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vincentbai/clicktrace-agent/internal/capture"
	"github.com/vincentbai/clicktrace-agent/internal/config"
	"github.com/vincentbai/clicktrace-agent/internal/dom"
	"github.com/vincentbai/clicktrace-agent/internal/eventloop"
)

type simulateOptions struct {
	page    string
	base    string
	url     string
	clicks  []string
	inserts []string
	dryRun  bool
	watch   bool
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Load a page, bind tracking and replay clicks against it",
		Example: `  clicktrace simulate --page shop.html --click '#buy' --click 'nav a'
  clicktrace simulate -c clicktrace.yaml --page shop.html --insert 'body=<a href="/late">late</a>' --click 'a[href="/late"]' --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.page, "page", "", "HTML file to load (required)")
	cmd.Flags().StringVar(&opts.base, "base", "http://localhost/", "URL the page is served from")
	cmd.Flags().StringVar(&opts.url, "url", "", "override tracking.url")
	cmd.Flags().StringArrayVar(&opts.clicks, "click", nil, "selector of an element to click, in order (repeatable)")
	cmd.Flags().StringArrayVar(&opts.inserts, "insert", nil, "parent-selector=html to insert before clicking (repeatable)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print payloads instead of posting them")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "re-initialize and replay when the config file changes")
	_ = cmd.MarkFlagRequired("page")
	return cmd
}

func runSimulate(cmd *cobra.Command, root *rootOptions, opts *simulateOptions) error {
	if opts.watch && root.configPath == "" {
		return errors.New("--watch needs --config")
	}
	out := &syncWriter{w: cmd.OutOrStdout()}
	logger := newLogger(cmd.ErrOrStderr(), root.verbose)

	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	tracking := opts.applyOverrides(cfg.Tracking)

	f, err := os.Open(opts.page)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	doc, err := dom.Parse(f, opts.base)
	f.Close()
	if err != nil {
		return err
	}
	doc.OnNavigate(func(loc string) { fmt.Fprintf(out, "navigate %s\n", loc) })

	loop := eventloop.New()
	trackerOpts := []capture.Option{capture.WithLogger(logger)}
	if opts.dryRun {
		trackerOpts = append(trackerOpts, capture.WithTransport(printTransport(out)))
	}
	tracker := capture.New(doc, loop, trackerOpts...)
	defer tracker.Close()

	if err := tracker.Initialize(tracking, doc.Root()); err != nil {
		return err
	}
	for _, ins := range opts.inserts {
		if err := insertHTML(doc, ins); err != nil {
			return err
		}
	}
	replay(doc, opts.clicks, out, logger)
	loop.Drain()

	if !opts.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := config.NewWatcher(root.configPath, logger)
	if err != nil {
		return err
	}
	go func() {
		_ = watcher.Run(ctx, func(next *config.Config) {
			loop.Post(func() {
				if err := tracker.Initialize(opts.applyOverrides(next.Tracking), doc.Root()); err != nil {
					logger.Warn("simulate: re-initialize failed", "error", err)
					return
				}
				replay(doc, opts.clicks, out, logger)
			})
		})
	}()

	logger.Info("simulate: watching config", "path", root.configPath)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (o *simulateOptions) applyOverrides(c capture.Config) capture.Config {
	if o.url != "" {
		c.URL = o.url
	}
	return c
}

func insertHTML(doc *dom.Document, arg string) error {
	sel, fragment, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("--insert %q: want parent-selector=html", arg)
	}
	compiled, err := dom.Compile(sel)
	if err != nil {
		return err
	}
	parent := doc.First(compiled)
	if parent == nil {
		return fmt.Errorf("--insert: nothing matches %q", sel)
	}
	_, err = doc.AppendHTML(parent, fragment)
	return err
}

func replay(doc *dom.Document, selectors []string, out io.Writer, logger *slog.Logger) {
	for _, s := range selectors {
		sel, err := dom.Compile(s)
		if err != nil {
			logger.Warn("simulate: bad selector", "selector", s, "error", err)
			continue
		}
		el := doc.First(sel)
		if el == nil {
			logger.Warn("simulate: nothing to click", "selector", s)
			continue
		}
		ev := doc.Click(el)
		fmt.Fprintf(out, "click %s id=%s prevented=%t\n", s, el.ID(), ev.DefaultPrevented())
	}
}

func printTransport(out io.Writer) capture.Transport {
	return capture.TransportFunc(func(_ context.Context, endpoint string, p capture.Payload) capture.Result {
		fmt.Fprintf(out, "POST %s %s\n", endpoint, p.Encode())
		return capture.Result{StatusCode: 204}
	})
}

// syncWriter serializes writes from the loop and transport goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Command sketch is a headless drawing client. It replays a pointer script
// through a sync session against a point store and writes both views out.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sketchsync/internal/config"
	"sketchsync/internal/discovery"
	"sketchsync/internal/engine"
	"sketchsync/internal/render"
	"sketchsync/internal/transport"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	scriptPath := flag.String("script", "-", "pointer script to replay, - for stdin")
	svgPath := flag.String("svg", "-", "where to write the SVG, - for stdout, empty to skip")
	pdfPath := flag.String("pdf", "", "also export both views to this PDF file")
	storeURL := flag.String("store", "", "point store base URL (overrides STORE_URL)")
	follow := flag.Bool("follow", false, "after the script, follow other viewers until interrupted")
	width := flag.Int("width", 800, "SVG width")
	height := flag.Int("height", 600, "SVG height")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}))
	slog.SetDefault(logger)

	ops, err := readScript(*scriptPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base := cfg.Client.StoreURL
	if *storeURL != "" {
		base = *storeURL
	} else if cfg.Client.Discover {
		lookupCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		found, err := discovery.Lookup(lookupCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to discover point store: %w", err)
		}
		logger.Info("discovered point store", "url", found)
		base = found
	}

	client := transport.NewClient(base,
		transport.WithHTTPClient(&http.Client{Timeout: cfg.Client.HTTPTimeout}),
		transport.WithRetryPolicy(transport.RetryPolicy{
			InitialBackoff: cfg.Client.InitialBackoff,
			MaxBackoff:     cfg.Client.MaxBackoff,
			MaxAttempts:    cfg.Client.MaxAttempts,
		}),
		transport.WithLogger(logger),
	)
	logger.Info("using point store", "url", base, "viewer_id", client.ViewerID())

	session := engine.NewSession(client,
		engine.WithFlushInterval(cfg.Client.FlushInterval),
		engine.WithSessionLogger(logger),
	)
	defer session.Close()

	if err := session.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load points: %w", err)
	}

	if *follow {
		go func() {
			if err := client.Subscribe(ctx, session.HandleEvent); err != nil && ctx.Err() == nil {
				logger.Error("feed stopped", "err", err)
			}
		}()
	}

	reset := func(ctx context.Context) error {
		ack, err := session.Reset(ctx)
		if err != nil {
			return err
		}
		logger.Info("store reset", "cleared", ack.Cleared)
		return nil
	}
	if err := replay(ctx, session, ops, reset); err != nil {
		return err
	}

	session.Flush()
	if err := session.Wait(ctx); err != nil {
		return fmt.Errorf("interrupted before the store confirmed: %w", err)
	}

	if *follow {
		logger.Info("following other viewers, interrupt to stop")
		<-ctx.Done()
	}

	view := session.Snapshot()
	logger.Info("done", "optimistic", len(view.Optimistic), "confirmed", len(view.Confirmed))

	segments := append(
		render.RenderPath(view.Optimistic, render.StyleSent),
		render.RenderPath(view.Confirmed, render.StyleConfirmed)...,
	)

	if *svgPath != "" {
		if err := writeTo(*svgPath, func(w io.Writer) error {
			return render.WriteSVG(w, *width, *height, segments)
		}); err != nil {
			return err
		}
	}
	if *pdfPath != "" {
		if err := writeTo(*pdfPath, func(w io.Writer) error {
			return render.ExportPDF(w, segments)
		}); err != nil {
			return err
		}
		logger.Info("exported pdf", "path", *pdfPath)
	}
	return nil
}

func readScript(path string) ([]op, error) {
	if path == "-" {
		return parseScript(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return parseScript(f)
}

func writeTo(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package main

import (
    "context"
    "fmt"
    "os"
    "time"

    "github.com/rs/zerolog/log"

    cfgpkg "github.com/local/pdfassembler/internal/config"
    "github.com/local/pdfassembler/internal/imagerender"
    logpkg "github.com/local/pdfassembler/internal/logger"
    "github.com/local/pdfassembler/internal/metrics"
    "github.com/local/pdfassembler/internal/pdfdoc"
    "github.com/local/pdfassembler/internal/session"
    "github.com/local/pdfassembler/internal/source"
    "github.com/local/pdfassembler/internal/ui"
)

func main() {
    cfg := cfgpkg.FromEnv()

    // Init logging
    if err := logpkg.Init(logpkg.Options{
        Level: cfg.Logging.Level,
        Pretty: cfg.Logging.Pretty,
        File: cfg.Logging.File,
        MaxSizeMB: cfg.Logging.MaxSizeMB,
        MaxBackups: cfg.Logging.MaxBackups,
        MaxAgeDays: cfg.Logging.MaxAgeDays,
        Compress: cfg.Logging.Compress,
        SendToAxiom: cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey: cfg.Axiom.APIKey,
        AxiomOrgID: cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush: cfg.Axiom.FlushInterval,
    }); err != nil {
        log.Warn().Err(err).Msg("file logging disabled")
    }
    defer logpkg.Close()

    // Metrics (optional listener)
    metrics.Init()
    if srv := metrics.Serve(cfg.MetricsAddr); srv != nil {
        defer func() {
            ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            _ = srv.Shutdown(ctx)
        }()
    }

    if n := source.CleanupStale(cfg.Source.TempDir, cfg.Source.StaleAge); n > 0 {
        log.Info().Int("removed", n).Msg("removed stale downloaded sources")
    }

    pdfOpts := pdfdoc.Options{Relaxed: cfg.PDF.Relaxed}
    deps := session.Dependencies{
        Reader:    pdfdoc.NewReader(pdfOpts),
        Assembler: pdfdoc.NewAssembler(pdfOpts),
        Renderer: imagerender.New(imagerender.Options{
            Width:  cfg.Preview.Width,
            Height: cfg.Preview.Height,
            DPI:    cfg.Preview.DPI,
        }),
        Sources:       source.New(source.Options{TempDir: cfg.Source.TempDir}),
        SourceTimeout: cfg.Source.Timeout,
    }

    if err := ui.Run(cfg, deps); err != nil {
        log.Error().Err(err).Msg("ui exited with error")
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
}

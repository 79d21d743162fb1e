package logger

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/axiomhq/axiom-go/axiom/ingest"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "pdfassembler"

// Options defines logger initialization parameters.
type Options struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool

    // Axiom
    SendToAxiom  bool
    AxiomAPIKey  string
    AxiomOrgID   string
    AxiomDataset string
    AxiomFlush   time.Duration

    // Console overrides stdout; mostly for tests.
    Console io.Writer
}

var (
    global zerolog.Logger
    ax     *axiomShipper
    rot    *lumberjack.Logger
)

// Init sets up the global logger: rotated file, console, optional Axiom forwarding.
// A file that cannot be created is reported and logging continues on the console.
func Init(opts Options) error {
    var writers []io.Writer
    var fileErr error

    if opts.File != "" {
        if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
            fileErr = fmt.Errorf("create logs dir: %w", err)
        } else {
            rot = &lumberjack.Logger{
                Filename:   opts.File,
                MaxSize:    opts.MaxSizeMB,
                MaxBackups: opts.MaxBackups,
                MaxAge:     opts.MaxAgeDays,
                Compress:   opts.Compress,
            }
            writers = append(writers, rot)
        }
    }

    console := opts.Console
    if console == nil { console = os.Stdout }
    if opts.Pretty {
        writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
    } else {
        writers = append(writers, console)
    }

    if opts.SendToAxiom && opts.AxiomAPIKey != "" {
        s, err := newAxiomShipper(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
        if err != nil {
            fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
        } else {
            ax = s
            writers = append(writers, &axiomWriter{shipper: s})
        }
    }

    zerolog.TimeFieldFormat = time.RFC3339
    lvl, err := zerolog.ParseLevel(opts.Level)
    if err != nil || opts.Level == "" {
        lvl = zerolog.InfoLevel
    }

    global = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Str("service", serviceName).Logger()
    log.Logger = global
    return fileErr
}

// Close flushes Axiom and closes the rotated file.
func Close() {
    if ax != nil {
        _ = ax.Close()
        ax = nil
    }
    if rot != nil {
        _ = rot.Close()
        rot = nil
    }
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// Component returns a child logger tagged with a component name.
func Component(name string) zerolog.Logger {
    return log.Logger.With().Str("component", name).Logger()
}

// axiomWriter forwards zerolog JSON lines to Axiom, skipping debug and trace.
type axiomWriter struct{ shipper *axiomShipper }

func (w *axiomWriter) Write(p []byte) (int, error) {
    var ev map[string]interface{}
    if err := json.Unmarshal(p, &ev); err != nil {
        ev = map[string]interface{}{"message": string(p), "level": "info"}
    }
    switch ev["level"] {
    case "debug", "trace":
        return len(p), nil
    }
    if _, ok := ev[ingest.TimestampField]; !ok {
        ev[ingest.TimestampField] = time.Now()
    }
    w.shipper.Send(axiom.Event(ev))
    return len(p), nil
}

// axiomShipper batches events and ingests them on a ticker or when the batch fills.
type axiomShipper struct {
    client  *axiom.Client
    dataset string
    events  chan axiom.Event
    done    chan struct{}
    wg      sync.WaitGroup
}

const axiomBatch = 200

func newAxiomShipper(token, orgID, dataset string, flushEvery time.Duration) (*axiomShipper, error) {
    if dataset == "" { dataset = "dev_" + serviceName }
    opts := []axiom.Option{axiom.SetToken(token)}
    if orgID != "" { opts = append(opts, axiom.SetOrganizationID(orgID)) }
    c, err := axiom.NewClient(opts...)
    if err != nil { return nil, err }
    if flushEvery <= 0 { flushEvery = 10 * time.Second }
    s := &axiomShipper{
        client:  c,
        dataset: dataset,
        events:  make(chan axiom.Event, 1000),
        done:    make(chan struct{}),
    }
    s.wg.Add(1)
    go s.run(flushEvery)
    return s, nil
}

// Send enqueues without blocking; events are dropped when the buffer is full.
func (s *axiomShipper) Send(ev axiom.Event) {
    select {
    case s.events <- ev:
    default:
    }
}

func (s *axiomShipper) run(flushEvery time.Duration) {
    defer s.wg.Done()
    ticker := time.NewTicker(flushEvery)
    defer ticker.Stop()
    batch := make([]axiom.Event, 0, axiomBatch)
    flush := func() {
        if len(batch) == 0 { return }
        ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
        _, _ = s.client.IngestEvents(ctx, s.dataset, batch)
        cancel()
        batch = batch[:0]
    }
    for {
        select {
        case <-s.done:
            flush()
            return
        case <-ticker.C:
            flush()
        case ev := <-s.events:
            batch = append(batch, ev)
            if len(batch) >= axiomBatch { flush() }
        }
    }
}

func (s *axiomShipper) Close() error {
    close(s.done)
    s.wg.Wait()
    return nil
}

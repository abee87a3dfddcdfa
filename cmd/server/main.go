package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"verdant.world/internal/persistence/indexdb"
	persistlog "verdant.world/internal/persistence/log"
	"verdant.world/internal/sim/config"
	"verdant.world/internal/sim/engine"
	"verdant.world/internal/sim/world"
	"verdant.world/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		configPath = flag.String("config", "", "engine config yaml (empty: built-in defaults)")
		seed       = flag.Int64("seed", 0, "world seed override (0: use config)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Defaults()
	if strings.TrimSpace(*configPath) != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	w, err := world.New(cfg, nil, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	start := time.Now()
	if err := w.Initialize(); err != nil {
		logger.Fatalf("generate world: %v", err)
	}
	logger.Printf("world generated in %s (seed=%d)", time.Since(start).Round(time.Millisecond), w.Seed())

	eng := engine.New(w, cfg, logger)

	tickLog := persistlog.NewTickLogger(*dataDir)
	defer tickLog.Close()
	exportLog := persistlog.NewExportLogger(*dataDir)
	defer exportLog.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "world.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}
	var idxLogger engine.TickLogger
	if idx != nil {
		idxLogger = idx
	}
	eng.SetTickLogger(multiTickLogger{a: tickLog, b: idxLogger})

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	obsSrv := observer.NewServer(eng, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	// The world and the agents belong to the engine goroutine; handlers
	// read them through eng.Inspect, never directly.
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		var (
			tick  uint64
			cells int
			deer  int
		)
		if err := eng.Inspect(func() {
			tick = eng.Tick()
			cells = w.CellCount()
			deer = len(eng.Wildlife().Deer())
		}); err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP verdant_engine_tick Completed wildlife ticks.\n")
		fmt.Fprintf(rw, "# TYPE verdant_engine_tick gauge\n")
		fmt.Fprintf(rw, "verdant_engine_tick %d\n", tick)

		fmt.Fprintf(rw, "# HELP verdant_world_cells Memoized world cells.\n")
		fmt.Fprintf(rw, "# TYPE verdant_world_cells gauge\n")
		fmt.Fprintf(rw, "verdant_world_cells %d\n", cells)

		fmt.Fprintf(rw, "# HELP verdant_deer_count Live deer.\n")
		fmt.Fprintf(rw, "# TYPE verdant_deer_count gauge\n")
		fmt.Fprintf(rw, "verdant_deer_count %d\n", deer)
	})
	mux.HandleFunc("/v1/export", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var (
			exp   world.Export
			stats world.Statistics
			seed  int64
		)
		if err := eng.Inspect(func() {
			exp = w.Export(time.Now().UTC())
			stats = w.Stats()
			seed = w.Seed()
		}); err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		// The export is a detached value now; persistence happens off
		// the engine goroutine.
		if err := exportLog.WriteExport(exp); err != nil {
			logger.Printf("export log: %v", err)
		}
		if idx != nil {
			idx.RecordExport(exp.Digest, seed, len(exp.GeneratedCells), stats)
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"ok":     true,
			"digest": exp.Digest,
			"cells":  len(exp.GeneratedCells),
		})
	})
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

type multiTickLogger struct {
	a engine.TickLogger
	b engine.TickLogger
}

func (m multiTickLogger) WriteTick(entry engine.TickSummary) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

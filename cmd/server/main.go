package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"longwater/internal/persistence/indexdb"
	persistlog "longwater/internal/persistence/log"
	"longwater/internal/sim/world"
	"longwater/internal/transport/ws"
	"longwater/internal/tuning"
)

func main() {
	// .env is optional; flags and real env win over it.
	_ = godotenv.Load()

	var (
		addr       = flag.String("addr", envOr("LW_ADDR", ":8080"), "http listen address")
		worldID    = flag.String("world", envOr("LW_WORLD", "valley_1"), "world id")
		seed       = flag.Int64("seed", envInt64("LW_SEED", 1337), "world seed")
		configDir  = flag.String("configs", envOr("LW_CONFIGS", "./configs"), "config directory")
		dataDir    = flag.String("data", envOr("LW_DATA", "./data"), "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite event index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	w, err := world.New(world.ConfigFromTuning(*worldID, *seed, tune), logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	eventLog := persistlog.NewEventLogger(worldDir)
	defer eventLog.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open event index: %v", err)
		}
		defer idx.Close()
	}
	w.SetEventSink(multiEventSink{a: eventLog, b: idx})

	ctx, cancel := signalContext()
	defer cancel()

	go w.Run(ctx)

	wsServer := ws.NewServer(w, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/stats", func(rw http.ResponseWriter, r *http.Request) {
		reqCtx, reqCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer reqCancel()
		snap, err := w.SnapshotAsync(reqCtx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(snap)
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		reqCtx, reqCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer reqCancel()
		snap, err := w.SnapshotAsync(reqCtx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP longwater_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE longwater_world_tick gauge\n")
		fmt.Fprintf(rw, "longwater_world_tick{world=%q} %d\n", snap.ID, snap.Tick)

		fmt.Fprintf(rw, "# HELP longwater_observer_z Observer position along the traversal axis.\n")
		fmt.Fprintf(rw, "# TYPE longwater_observer_z gauge\n")
		fmt.Fprintf(rw, "longwater_observer_z{world=%q} %.3f\n", snap.ID, snap.ObserverZ)

		fmt.Fprintf(rw, "# HELP longwater_active_chunks Active chunk count.\n")
		fmt.Fprintf(rw, "# TYPE longwater_active_chunks gauge\n")
		fmt.Fprintf(rw, "longwater_active_chunks{world=%q} %d\n", snap.ID, len(snap.Active))

		fmt.Fprintf(rw, "# HELP longwater_loading_chunks In-flight chunk builds.\n")
		fmt.Fprintf(rw, "# TYPE longwater_loading_chunks gauge\n")
		fmt.Fprintf(rw, "longwater_loading_chunks{world=%q} %d\n", snap.ID, len(snap.Loading))

		fmt.Fprintf(rw, "# HELP longwater_corridor_segments Cached collision segment pairs.\n")
		fmt.Fprintf(rw, "# TYPE longwater_corridor_segments gauge\n")
		fmt.Fprintf(rw, "longwater_corridor_segments{world=%q} %d\n", snap.ID, snap.Segments)

		fmt.Fprintf(rw, "# HELP longwater_placements_live Placements in the live spatial grid.\n")
		fmt.Fprintf(rw, "# TYPE longwater_placements_live gauge\n")
		fmt.Fprintf(rw, "longwater_placements_live{world=%q} %d\n", snap.ID, snap.Stream.PlacementsLive)

		fmt.Fprintf(rw, "# HELP longwater_chunks_built_total Chunks built since start.\n")
		fmt.Fprintf(rw, "# TYPE longwater_chunks_built_total counter\n")
		fmt.Fprintf(rw, "longwater_chunks_built_total{world=%q} %d\n", snap.ID, snap.Stream.ChunksBuilt)

		fmt.Fprintf(rw, "# HELP longwater_chunks_failed_total Chunk builds failed since start.\n")
		fmt.Fprintf(rw, "# TYPE longwater_chunks_failed_total counter\n")
		fmt.Fprintf(rw, "longwater_chunks_failed_total{world=%q} %d\n", snap.ID, snap.Stream.ChunksFailed)

		fmt.Fprintf(rw, "# HELP longwater_entities Live ambient entities.\n")
		fmt.Fprintf(rw, "# TYPE longwater_entities gauge\n")
		fmt.Fprintf(rw, "longwater_entities{world=%q} %d\n", snap.ID, snap.Entities)
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("world=%s seed=%d tick_rate=%dHz listening on %s", *worldID, *seed, tune.TickRateHz, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http: %v", err)
	}
	logger.Printf("shutdown complete")
}

// multiEventSink fans events to the JSONL log and, when enabled, the
// sqlite index.
type multiEventSink struct {
	a *persistlog.EventLogger
	b *indexdb.SQLiteIndex
}

func (s multiEventSink) WriteEvent(e world.EventLogEntry) error {
	err := s.a.WriteEvent(e)
	if s.b != nil {
		_ = s.b.WriteEvent(e)
	}
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

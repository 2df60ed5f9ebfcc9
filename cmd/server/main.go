package main

import (
	"context"
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

	"voxelwalk.dev/internal/persistence/indexdb"
	persistlog "voxelwalk.dev/internal/persistence/log"
	"voxelwalk.dev/internal/persistence/snapshot"
	"voxelwalk.dev/internal/sim/terrain"
	"voxelwalk.dev/internal/sim/tuning"
	"voxelwalk.dev/internal/sim/world"
	"voxelwalk.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")

		layoutPath = flag.String("layout", "", "path to a layout text file (default: <configs>/world.txt if present)")
		genSize    = flag.Int("gen_size", 64, "generated terrain width/depth when no layout is given")
		seed       = flag.Int64("seed", 1337, "terrain seed (used only when generating)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume from the newest snapshot in the data dir (when -snapshot is empty)")
		keepSnaps  = flag.Int("keep_snapshots", 8, "snapshot files to retain (0 keeps all)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	snapDir := filepath.Join(worldDir, "snapshots")
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	w, resumed, err := buildWorld(buildParams{
		WorldID:    *worldID,
		ConfigDir:  *configDir,
		SnapDir:    snapDir,
		SnapPath:   strings.TrimSpace(*snapPath),
		LoadLatest: *loadLatest,
		LayoutPath: strings.TrimSpace(*layoutPath),
		GenSize:    *genSize,
		Seed:       *seed,
		Tune:       tune,
	}, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if resumed != "" {
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(resumed), w.CurrentTick())
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer tickLog.Close()
	defer auditLog.Close()
	tickFan := multiTickLogger{a: tickLog}
	auditFan := multiAuditLogger{a: auditLog}
	if idx != nil {
		tickFan.b = idx
		auditFan.b = idx
	}
	w.SetTickLogger(tickFan)
	w.SetAuditLogger(auditFan)

	snapCh := make(chan world.SnapshotState, 2)
	w.SetSnapshotSink(snapCh)
	sink := &snapshot.Sink{Dir: snapDir, Keep: *keepSnaps, Logger: logger}
	if idx != nil {
		sink.Recorder = idx
	}
	go sink.Run(ctx, snapCh)

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(rw, "# HELP voxelwalk_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE voxelwalk_world_tick gauge\n")
		fmt.Fprintf(rw, "voxelwalk_world_tick{world=%q} %d\n", *worldID, w.CurrentTick())
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

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

	logger.Printf("world=%s %dx%dx%d tick_rate=%dHz listening on %s",
		w.ID(), w.Grid().Width(), w.Grid().Height(), w.Grid().Depth(), w.TickRateHz(), *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

type buildParams struct {
	WorldID    string
	ConfigDir  string
	SnapDir    string
	SnapPath   string
	LoadLatest bool
	LayoutPath string
	GenSize    int
	Seed       int64
	Tune       tuning.Tuning
}

// buildWorld resolves the grid source in priority order: explicit snapshot,
// newest snapshot on disk, layout file, generated terrain.
func buildWorld(p buildParams, logger *log.Logger) (*world.World, string, error) {
	snapToLoad := p.SnapPath
	if snapToLoad == "" && p.LoadLatest {
		latest, err := snapshot.Latest(p.SnapDir)
		if err != nil {
			return nil, "", err
		}
		snapToLoad = latest
	}

	if snapToLoad != "" {
		snap, err := snapshot.Read(snapToLoad)
		if err != nil {
			return nil, "", fmt.Errorf("read snapshot: %w", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != p.WorldID {
			return nil, "", fmt.Errorf("snapshot world id mismatch: flag=%s snap=%s", p.WorldID, snap.Header.WorldID)
		}
		g, err := snap.Grid()
		if err != nil {
			return nil, "", err
		}
		cfg := world.Config{
			ID:                 p.WorldID,
			TickRateHz:         snap.TickRateHz,
			Height:             snap.Height,
			MaxDtScale:         p.Tune.MaxDtScale,
			SnapshotEveryTicks: p.Tune.SnapshotEveryTicks,
			Physics:            snap.Physics,
		}
		w, err := world.New(cfg, g)
		if err != nil {
			return nil, "", err
		}
		w.RestorePlayer(snap.Player())
		w.RestoreTick(snap.Header.Tick)
		return w, snapToLoad, nil
	}

	layoutPath := p.LayoutPath
	if layoutPath == "" {
		candidate := filepath.Join(p.ConfigDir, "world.txt")
		if _, err := os.Stat(candidate); err == nil {
			layoutPath = candidate
		}
	}

	cfg := p.Tune.WorldConfig(p.WorldID)

	var g *world.Grid
	if layoutPath != "" {
		raw, err := os.ReadFile(layoutPath)
		if err != nil {
			return nil, "", err
		}
		g, err = world.ParseLayout(string(raw), cfg.Height)
		if err != nil {
			return nil, "", err
		}
		logger.Printf("layout=%s", layoutPath)
	} else {
		var err error
		g, err = terrain.Generate(terrain.Params{
			Width:  p.GenSize,
			Depth:  p.GenSize,
			Height: cfg.Height,
			Seed:   p.Seed,
		})
		if err != nil {
			return nil, "", err
		}
		logger.Printf("generated terrain %dx%d seed=%d", p.GenSize, p.GenSize, p.Seed)
	}

	w, err := world.New(cfg, g)
	return w, "", err
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
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.EditAuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}

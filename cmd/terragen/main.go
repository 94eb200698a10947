package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"terragen.ai/internal/pack"
	"terragen.ai/internal/session"
	"terragen.ai/internal/sim/tuning"
)

func main() {
	def := tuning.Defaults()
	var (
		configPath = flag.String("config", "", "terragen.yaml run file (optional; explicit flags override it)")
		packDir    = flag.String("pack", def.Pack, "generator pack directory (empty: built-in default pack)")
		fetchSrc   = flag.String("fetch", def.Fetch, "remote pack source (go-getter syntax); fetched into <data>/packs")
		dataDir    = flag.String("data", def.Data, "runtime data directory")
		seed       = flag.Int64("seed", def.Seed, "world seed")
		radius     = flag.Int("radius", def.Radius, "generate chunks within this many chunks of the origin")
		workers    = flag.Int("workers", def.Workers, "concurrent chunk workers")
		regKind    = flag.String("registry", def.Registry, "structure registry backend: memory|sqlite|leveldb")
		resume     = flag.Bool("resume", def.Resume, "resume from <data>/session.snap.zst if present")
		httpAddr   = flag.String("http", def.HTTP, "serve /healthz, /metrics and pprof on this address (empty to disable)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[terragen] ", log.LstdFlags|log.Lmicroseconds)

	run := tuning.Tuning{
		Seed: *seed, Radius: *radius, Workers: *workers, Registry: *regKind,
		Pack: *packDir, Fetch: *fetchSrc, Data: *dataDir, HTTP: *httpAddr, Resume: *resume,
	}
	if p := strings.TrimSpace(*configPath); p != "" {
		file, err := tuning.Load(p)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		run = merge(file, run, set)
	}
	run.Normalize()
	if err := run.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := session.Open(ctx, session.Config{
		Pack:     pack.Source{Dir: run.Pack, Remote: run.Fetch},
		DataDir:  run.Data,
		Seed:     run.Seed,
		Registry: run.Registry,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("open session: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Printf("close: %v", err)
		}
	}()

	snapPath := session.SnapshotPath(run.Data)
	if run.Resume {
		if _, err := s.Resume(ctx, snapPath); err != nil {
			logger.Fatalf("resume: %v", err)
		}
	}

	if run.HTTP != "" {
		srv := &http.Server{Addr: run.HTTP, Handler: metricsMux(s), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Printf("listening on %s", run.HTTP)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("http: %v", err)
			}
		}()
		defer srv.Close()
	}

	start := time.Now()
	side := 2*run.Radius + 1
	step := max(side*side/20, 1)
	err = s.Generate(ctx, run.Radius, run.Workers, func(done, total int) {
		if done%step == 0 || done == total {
			logger.Printf("progress: %d/%d chunks (%.1fs)", done, total, time.Since(start).Seconds())
		}
	})
	switch {
	case errors.Is(err, context.Canceled):
		logger.Printf("interrupted; saving partial session")
	case err != nil:
		logger.Printf("generate: %v", err)
	}

	m := s.Metrics()
	logger.Printf("done: chunks=%d placements=%d mantle_chunks=%d elapsed=%s",
		m.Chunks, m.Placements, m.MantleChunks, time.Since(start).Round(time.Millisecond))
	if err := s.Save(snapPath, run.Radius); err != nil {
		logger.Fatalf("%v", err)
	}
}

// merge overlays the flags named in set onto the run file.
func merge(file, flags tuning.Tuning, set map[string]bool) tuning.Tuning {
	out := file
	if set["seed"] {
		out.Seed = flags.Seed
	}
	if set["radius"] {
		out.Radius = flags.Radius
	}
	if set["workers"] {
		out.Workers = flags.Workers
	}
	if set["registry"] {
		out.Registry = flags.Registry
	}
	if set["pack"] {
		out.Pack = flags.Pack
	}
	if set["fetch"] {
		out.Fetch = flags.Fetch
	}
	if set["data"] {
		out.Data = flags.Data
	}
	if set["http"] {
		out.HTTP = flags.HTTP
	}
	if set["resume"] {
		out.Resume = flags.Resume
	}
	return out
}

func metricsMux(s *session.Session) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := s.Metrics()
		fmt.Fprintf(rw, "terragen_chunks %d\n", m.Chunks)
		fmt.Fprintf(rw, "terragen_placements_total %d\n", m.Placements)
		fmt.Fprintf(rw, "terragen_mantle_chunks %d\n", m.MantleChunks)
		fmt.Fprintf(rw, "terragen_uptime_seconds %.0f\n", m.Uptime.Seconds())
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
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

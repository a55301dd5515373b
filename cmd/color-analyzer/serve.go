package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	coloranalyzer "github.com/menta2k/color-analyzer"
	"github.com/menta2k/color-analyzer/internal/live"
	"github.com/menta2k/color-analyzer/internal/utils"
	"github.com/menta2k/color-analyzer/pkg/processing"
	"github.com/menta2k/color-analyzer/pkg/types"
)

var serveOpts struct {
	addr string
	path string
	fps  float64
	loop bool
}

var serveCmd = &cobra.Command{
	Use:   "serve <dir>",
	Short: "Stream live analysis of a recorded session over WebSocket",
	Long: `Feed the frames in a directory through the pipeline at a fixed frame
rate and publish frame reports and result updates to WebSocket clients.

Endpoints:
  <path>           WebSocket feed ("frame" and "result" messages)
  /health          connected client count
  /result          latest result as JSON
  /stats           frame counters and pool statistics
  /memory-warning  POST to release pooled device memory`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"store": "true"},
	RunE:        runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.addr, "addr", "", "listen address (default: live.addr)")
	f.StringVar(&serveOpts.path, "path", "", "WebSocket path (default: live.path)")
	f.Float64Var(&serveOpts.fps, "fps", 15, "frames fed per second")
	f.BoolVar(&serveOpts.loop, "loop", false, "restart the session when the last frame is reached")
	rootCmd.AddCommand(serveCmd)
}

// latest holds the most recent result for the HTTP endpoint
type latest struct {
	mu     sync.RWMutex
	result *types.AnalysisResult
}

func (l *latest) set(r *types.AnalysisResult) {
	l.mu.Lock()
	l.result = r
	l.mu.Unlock()
}

func (l *latest) get() *types.AnalysisResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.result
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	frames, _, err := utils.DiscoverFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames with masks in %s", args[0])
	}
	if serveOpts.fps <= 0 {
		return fmt.Errorf("fps must be positive, got %v", serveOpts.fps)
	}

	addr := serveOpts.addr
	if addr == "" {
		addr = cfg.Live.Addr
	}
	wsPath := serveOpts.path
	if wsPath == "" {
		wsPath = cfg.Live.Path
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	logger := newLogger()
	hub := live.NewHub(logger)
	defer hub.Close()

	var current latest
	updates := make(chan struct{}, 1)
	p.SetUpdateHandler(func(u coloranalyzer.Update) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-updates:
			}
			r, err := p.Result()
			if err != nil {
				continue
			}
			current.set(r)
			if err := hub.Broadcast("result", r); err != nil {
				logger.Printf("broadcast failed: %v", err)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle(wsPath, hub)
	mux.HandleFunc("/health", hub.HealthHandler)
	mux.HandleFunc("/result", func(w http.ResponseWriter, r *http.Request) {
		res := current.get()
		if res == nil {
			http.Error(w, "no result yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, res)
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"frames": p.Stats(),
			"pools":  p.PoolStats(),
		})
	})
	mux.HandleFunc("/memory-warning", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		p.HandleMemoryWarning()
		writeJSON(w, p.PoolStats())
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("live feed on ws://%s%s", addr, wsPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
		close(serveErr)
	}()

	feed(ctx, p, hub, frames, logger)

	// keep serving the final result until interrupted
	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	srv.Shutdown(shutdownCtx)
	hub.Close()
	wg.Wait()
	if err := <-serveErr; err != nil {
		return fmt.Errorf("live server: %w", err)
	}

	if db != nil {
		if r := current.get(); r != nil {
			if _, err := db.SaveResult(shutdownCtx, args[0], r); err != nil {
				log.Printf("failed to store result: %v", err)
			}
		}
	}
	return nil
}

// feed pushes frames through the pipeline at the configured rate until
// the session ends or ctx is cancelled
func feed(ctx context.Context, p *coloranalyzer.Pipeline, hub *live.Hub, frames []utils.FrameFiles, logger *log.Logger) error {
	processor := processing.NewProcessor()
	ticker := time.NewTicker(time.Duration(float64(time.Second) / serveOpts.fps))
	defer ticker.Stop()

	for {
		for _, files := range frames {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			frame, err := loadFrame(processor, files)
			if err != nil {
				logger.Printf("frame %s: %v", files.Name(), err)
				continue
			}
			report := p.ProcessFrame(frame)
			hub.Broadcast("frame", newFrameEntry(files.Name(), report))
		}
		p.Flush()
		if !serveOpts.loop {
			log.Printf("session finished after %d frames", len(frames))
			return nil
		}
		p.Reset()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

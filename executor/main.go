package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/brensch/tank2/config"
	"github.com/brensch/tank2/executor/selfplay"
	"github.com/brensch/tank2/logging"
	"github.com/brensch/tank2/spectate"
	"github.com/brensch/tank2/store"
)

func main() {
	configPath := flag.String("config", getEnvOrDefault("TANK_CONFIG", ""), "YAML config file; flags below override it")
	outDir := flag.String("out-dir", getEnvOrDefault("OUT_DIR", ""), "Directory for parquet match batches")
	matches := flag.Int("matches", getEnvIntOrDefault("MATCHES", -1), "Stop after this many matches (0 runs until interrupted)")
	gamesPerFlush := flag.Int("games-per-flush", getEnvIntOrDefault("GAMES_PER_FLUSH", 0), "Matches buffered per parquet file")
	budget := flag.Duration("budget", getEnvDurationOrDefault("BUDGET", 0), "Search deadline per decision for both sides")
	seed := flag.Uint64("seed", uint64(getEnvIntOrDefault("SEED", 0)), "Base seed; 0 picks one from the clock")
	spectateAddr := flag.String("spectate-addr", getEnvOrDefault("SPECTATE_ADDR", ""), "Serve live frames over WebSocket on this address, e.g. :8080")
	useTUI := flag.Bool("tui", getEnvBoolOrDefault("TUI", false), "Show a progress screen; logs go to -log-file")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", ""), "zerolog level (debug, info, warn, error)")
	logFile := flag.String("log-file", getEnvOrDefault("LOG_FILE", "selfplay.log"), "Log file used while the TUI owns the terminal")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *outDir != "" {
		cfg.SelfPlay.OutDir = *outDir
	}
	if *matches >= 0 {
		cfg.SelfPlay.Matches = *matches
	}
	if *gamesPerFlush > 0 {
		cfg.SelfPlay.GamesPerFlush = *gamesPerFlush
	}
	if *budget > 0 {
		cfg.Search.Deadline = *budget
		if cfg.Opponent != nil {
			cfg.Opponent.Deadline = *budget
		}
	}
	if *seed != 0 {
		cfg.SelfPlay.Seed = *seed
	}
	if cfg.SelfPlay.Seed == 0 {
		cfg.SelfPlay.Seed = uint64(time.Now().UnixNano())
	}
	if *spectateAddr != "" {
		cfg.SelfPlay.SpectateAddr = *spectateAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *useTUI {
		cfg.Log.File = *logFile
	}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("set up logging")
	}
	defer closer.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	if err := run(ctx, cancel, cfg, *useTUI); err != nil {
		log.Fatal().Err(err).Msg("self-play failed")
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg config.Config, useTUI bool) error {
	matchLog, err := store.OpenMatchLog(cfg.SelfPlay.LogPath)
	if err != nil {
		return err
	}
	defer matchLog.Close()

	var hub *spectate.Hub
	if cfg.SelfPlay.SpectateAddr != "" {
		hub = spectate.NewHub(cfg.Spectate)
		srv := &http.Server{Addr: cfg.SelfPlay.SpectateAddr, Handler: hub, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("spectate hub listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("spectate server")
			}
		}()
		defer func() {
			hub.Close()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	results := make(chan selfplay.MatchResult, 4)
	archiveDone := make(chan struct{})
	go func() {
		archiveLoop(cfg.SelfPlay.OutDir, cfg.SelfPlay.GamesPerFlush, matchLog, results)
		close(archiveDone)
	}()

	var program *tea.Program
	if useTUI {
		program = tea.NewProgram(newModel(cfg), tea.WithAltScreen())
	}
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(results)
		playMatches(ctx, cfg, matchLog, hub, results, send)
		cancel()
		send(doneMsg{})
	}()

	if program != nil {
		if _, err := program.Run(); err != nil {
			cancel()
			wg.Wait()
			<-archiveDone
			return fmt.Errorf("tui: %w", err)
		}
		// Quitting the screen stops the run.
		cancel()
	}

	wg.Wait()
	<-archiveDone
	log.Info().Int("archived", matchLog.Count()).Msg("shutdown complete")
	return nil
}

// playMatches runs matches one after another until the configured count or
// cancellation. Finished matches go to results; an interrupted one is dropped.
func playMatches(ctx context.Context, cfg config.Config, matchLog *store.MatchLog, hub *spectate.Hub, results chan<- selfplay.MatchResult, send func(tea.Msg)) {
	played := 0
	for i := 0; cfg.SelfPlay.Matches == 0 || played < cfg.SelfPlay.Matches; i++ {
		if ctx.Err() != nil {
			return
		}
		seed := cfg.SelfPlay.Seed + uint64(i)
		matchID := fmt.Sprintf("sp_%d", seed)
		if matchLog.Has(matchID) {
			log.Debug().Str("match", matchID).Msg("already archived, skipping")
			continue
		}

		mc := selfplay.MatchConfig{
			Search:  cfg.Sides(),
			Weights: cfg.Weights,
			Terrain: cfg.Terrain,
			Seed:    seed,
		}
		res, err := selfplay.PlayMatch(ctx, mc, selfplay.MatchOptions{
			MatchID: matchID,
			Verbose: cfg.Log.Level == "trace",
			OnTurn: func(r selfplay.TurnReport) {
				f := r.Frame()
				if hub != nil {
					if err := hub.Broadcast(f); err != nil {
						log.Warn().Err(err).Msg("broadcast frame")
					}
				}
				send(frameMsg(f))
			},
		})
		if err != nil {
			log.Error().Err(err).Str("match", matchID).Msg("match failed")
			continue
		}
		if !res.Completed {
			log.Info().Str("match", matchID).Int("turns", res.Turns).Msg("match interrupted, not archived")
			return
		}

		played++
		if hub != nil {
			_ = hub.EndMatch(spectate.Frame{MatchID: matchID, Turn: res.Turns, Outcome: res.Outcome.String()})
		}
		send(matchMsg{ID: matchID, Outcome: res.Outcome, Turns: res.Turns, Took: res.Duration})
		results <- res
	}
}

// archiveLoop buffers finished matches and flushes them to one parquet file
// per gamesPerFlush matches, recording the archived IDs once the file is in
// place. Whatever is buffered when in closes is flushed too. With
// gamesPerFlush 1 each match is written straight to its own file.
func archiveLoop(outDir string, gamesPerFlush int, matchLog *store.MatchLog, in <-chan selfplay.MatchResult) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var bw *store.BatchWriter
	flush := func(reason string) {
		if bw == nil {
			return
		}
		matches, rows := bw.Matches(), bw.Rows()
		outPath, ids, err := bw.Finalize()
		bw = nil
		if err != nil {
			log.Error().Err(err).Int("matches", matches).Int("rows", rows).Msg("parquet flush failed")
			return
		}
		if err := matchLog.AddMany(ids); err != nil {
			log.Error().Err(err).Msg("record archived matches")
		}
		log.Info().Str("path", outPath).Str("reason", reason).Int("matches", matches).Int("rows", rows).Msg("parquet flush ok")
	}

	for res := range in {
		if len(res.Rows) == 0 {
			continue
		}
		if gamesPerFlush == 1 {
			writeSingle(outDir, matchLog, res)
			continue
		}
		if bw == nil {
			var err error
			if bw, err = store.NewBatchWriter(outDir); err != nil {
				log.Error().Err(err).Str("match", res.MatchID).Msg("open batch, dropping match")
				continue
			}
		}
		if err := bw.WriteMatch(res.MatchID, res.Rows); err != nil {
			log.Error().Err(err).Msg("write match")
			continue
		}
		if bw.Matches() >= gamesPerFlush {
			flush("count")
		}
	}
	flush("final")
}

// writeSingle archives one match as its own file.
func writeSingle(outDir string, matchLog *store.MatchLog, res selfplay.MatchResult) {
	outPath, err := store.WriteBatchParquetAtomic(outDir, res.Rows)
	if err != nil {
		log.Error().Err(err).Str("match", res.MatchID).Msg("parquet write failed")
		return
	}
	if err := matchLog.AddMany([]string{res.MatchID}); err != nil {
		log.Error().Err(err).Msg("record archived match")
	}
	log.Info().Str("path", outPath).Str("match", res.MatchID).Int("rows", len(res.Rows)).Msg("parquet write ok")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

// Command watch follows a self-play spectate stream in the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/brensch/tank2/logging"
	"github.com/brensch/tank2/spectate"
)

func main() {
	url := flag.String("url", getEnvOrDefault("SPECTATE_URL", "ws://localhost:8080/"), "Spectate hub WebSocket URL")
	logFile := flag.String("log-file", getEnvOrDefault("LOG_FILE", "watch.log"), "Log file, the terminal belongs to the viewer")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "zerolog level")
	flag.Parse()

	closer, err := logging.Setup(logging.Options{Level: *logLevel, File: *logFile, Pretty: true})
	if err != nil {
		log.Fatal().Err(err).Msg("set up logging")
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := tea.NewProgram(newModel(*url), tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		err := spectate.Follow(ctx, *url, spectate.DefaultFollowConfig(), func(f spectate.Frame, final bool) error {
			p.Send(frameMsg{Frame: f, Final: final})
			return nil
		})
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("url", *url).Msg("follow")
		}
		p.Send(disconnectedMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("viewer")
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

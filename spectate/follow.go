package spectate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// FollowConfig tunes Follow.
type FollowConfig struct {
	ConnectTimeout time.Duration
	// ReadTimeout is the longest silence tolerated between messages.
	ReadTimeout time.Duration
}

func DefaultFollowConfig() FollowConfig {
	return FollowConfig{
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    time.Minute,
	}
}

// Follow connects to a hub and calls fn for every frame until the hub
// closes the stream, ctx is done or fn returns an error. final reports a
// match_end event.
func Follow(ctx context.Context, url string, cfg FollowConfig, fn func(f Frame, final bool) error) error {
	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		if cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			log.Warn().Err(err).Msg("failed to parse event")
			continue
		}
		if event.Type != EventFrame && event.Type != EventMatchEnd {
			continue
		}

		var f Frame
		if err := json.Unmarshal(event.Data, &f); err != nil {
			log.Warn().Err(err).Msg("failed to parse frame")
			continue
		}
		if err := fn(f, event.Type == EventMatchEnd); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// ErrStop can be returned by a Follow callback to stop following cleanly.
var ErrStop = errors.New("stop following")

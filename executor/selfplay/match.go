package selfplay

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brensch/tank2/executor/eval"
	"github.com/brensch/tank2/executor/mcts"
	"github.com/brensch/tank2/game"
	"github.com/brensch/tank2/rules"
	"github.com/brensch/tank2/spectate"
	"github.com/brensch/tank2/store"
)

// MatchConfig describes both players and the board of one self-play match.
type MatchConfig struct {
	// Search configures each side's engine.
	Search  [game.Sides]mcts.Config
	Weights eval.Weights
	Terrain TerrainConfig
	// Seed fixes the terrain and both engines' random streams.
	Seed uint64
}

type MatchOptions struct {
	// MatchID names the match in archive rows and frames. Generated when empty.
	MatchID string
	// OnTurn is called after every turn.
	OnTurn func(TurnReport)
	// Verbose traces every turn to the debug log.
	Verbose bool
}

// TurnReport describes one played turn.
type TurnReport struct {
	MatchID string
	// State is the position after the turn. Callers must not modify it.
	State     *game.GameState
	Actions   [game.Sides]game.JointAction
	Decisions [game.Sides]mcts.Decision
	Outcome   game.Outcome
}

// Frame converts the report for spectators.
func (r TurnReport) Frame() spectate.Frame {
	f := spectate.Frame{
		MatchID: r.MatchID,
		Turn:    r.State.Turn - 1,
		Board:   game.Rows(r.State),
		Bases:   [2]bool{r.State.Bases[0].Alive, r.State.Bases[1].Alive},
		Outcome: r.Outcome.String(),
	}
	for side := 0; side < game.Sides; side++ {
		for unit := 0; unit < game.UnitsPerSide; unit++ {
			f.Actions[side][unit] = r.Actions[side][unit].String()
		}
		d := r.Decisions[side]
		st := spectate.SideStats{Side: side, Iterations: d.Stats.Iterations}
		if d.Chose < len(d.Arms) {
			st.Visits = d.Arms[d.Chose].Visits
			st.Value = d.Arms[d.Chose].Value
		}
		f.Sides = append(f.Sides, st)
	}
	return f
}

type MatchResult struct {
	MatchID string
	Outcome game.Outcome
	// Turns is the number of turns played.
	Turns    int
	Duration time.Duration
	// Completed is false when the match was cancelled before it finished.
	Completed bool
	Rows      []store.MatchTurnRow
}

// PlayMatch plays one engine against another on generated terrain. A
// cancelled ctx returns the partial match with Completed unset.
func PlayMatch(ctx context.Context, cfg MatchConfig, opts MatchOptions) (MatchResult, error) {
	if err := cfg.Terrain.Validate(); err != nil {
		return MatchResult{}, err
	}

	matchID := opts.MatchID
	if matchID == "" {
		matchID = fmt.Sprintf("selfplay_%d_%d", time.Now().UnixNano(), cfg.Seed)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0x7a4b))
	brick, water, steel := GenerateTerrain(rng, cfg.Terrain)
	state, err := game.NewGameState(brick, water, steel, 0)
	if err != nil {
		return MatchResult{}, fmt.Errorf("build opening: %w", err)
	}

	ev := eval.NewEvaluator(cfg.Weights)
	var engines [game.Sides]*mcts.Engine
	for side := range engines {
		engines[side] = mcts.NewEngine(cfg.Search[side], ev, rand.New(rand.NewPCG(cfg.Seed, uint64(side)+1)))
	}

	start := time.Now()
	res := MatchResult{MatchID: matchID, Outcome: game.Unfinished}
	rows := make([]store.MatchTurnRow, 0, game.MaxTurn+1)

	for !rules.IsTerminal(state) {
		if ctx.Err() != nil {
			break
		}

		var decisions [game.Sides]mcts.Decision
		var actions [game.Sides]game.JointAction
		for side := range engines {
			view := state.Clone()
			view.MySide = side
			d, err := engines[side].Search(ctx, view)
			if err != nil {
				return res, fmt.Errorf("turn %d side %d: %w", state.Turn, side, err)
			}
			decisions[side], actions[side] = d, d.Action
		}
		if ctx.Err() != nil {
			// A search cut short by cancellation is not worth playing.
			break
		}

		rows = append(rows, turnRow(matchID, state, actions, decisions))
		if err := rules.Step(state, actions[0], actions[1]); err != nil {
			return res, fmt.Errorf("turn %d: %w", state.Turn, err)
		}

		report := TurnReport{
			MatchID:   matchID,
			State:     state,
			Actions:   actions,
			Decisions: decisions,
			Outcome:   rules.Outcome(state),
		}
		if opts.Verbose {
			PrintBoard(matchID, state, decisions[:])
		}
		if opts.OnTurn != nil {
			opts.OnTurn(report)
		}
	}

	res.Turns = state.Turn - 1
	res.Duration = time.Since(start)
	res.Outcome = rules.Outcome(state)
	res.Completed = res.Outcome != game.Unfinished

	if res.Completed {
		rows = append(rows, turnRow(matchID, state, [game.Sides]game.JointAction{
			{game.Invalid, game.Invalid}, {game.Invalid, game.Invalid},
		}, [game.Sides]mcts.Decision{}))
	}
	for i := range rows {
		rows[i].Outcome = int32(res.Outcome)
		for j := range rows[i].Sides {
			if res.Completed {
				rows[i].Sides[j].Value = float32(res.Outcome.Value(j))
			}
		}
	}
	res.Rows = rows

	log.Info().
		Str("match", matchID).
		Str("outcome", res.Outcome.String()).
		Int("turns", res.Turns).
		Dur("took", res.Duration).
		Bool("completed", res.Completed).
		Msg("match finished")
	return res, nil
}

type armJSON struct {
	Side   int     `json:"side"`
	Action string  `json:"action"`
	Visits int     `json:"n"`
	Value  float64 `json:"q"`
	Prior  float64 `json:"p"`
}

func turnRow(matchID string, s *game.GameState, actions [game.Sides]game.JointAction, decisions [game.Sides]mcts.Decision) store.MatchTurnRow {
	brick, water, steel := game.Terrain(s)
	row := store.MatchTurnRow{
		MatchID:   matchID,
		Turn:      int32(s.Turn),
		Brick:     brick[:],
		Water:     water[:],
		Steel:     steel[:],
		BaseAlive: []bool{s.Bases[0].Alive, s.Bases[1].Alive},
		Source:    "selfplay",
	}
	for side := 0; side < game.Sides; side++ {
		for id := 0; id < game.UnitsPerSide; id++ {
			u := s.Units[side][id]
			row.Units = append(row.Units, store.UnitRow{
				Side:   int32(side),
				ID:     int32(id),
				Alive:  u.Alive,
				X:      int32(u.Pos.X),
				Y:      int32(u.Pos.Y),
				Action: int32(actions[side][id]),
			})
		}
	}

	var arms []armJSON
	for side, d := range decisions {
		if len(d.Arms) == 0 {
			continue
		}
		chosen := d.Arms[d.Chose]
		row.Sides = append(row.Sides, store.SideRow{
			Side:         int32(side),
			Iterations:   int32(d.Stats.Iterations),
			Nodes:        int32(d.Stats.Nodes),
			Arms:         int32(len(d.Arms)),
			ChosenVisits: int32(chosen.Visits),
			ChosenValue:  float32(chosen.Value),
		})
		for _, a := range d.Arms {
			if a.Visits == 0 {
				continue
			}
			arms = append(arms, armJSON{Side: side, Action: a.Action.String(), Visits: a.Visits, Value: a.Value, Prior: a.Prior})
		}
	}
	if len(arms) > 0 {
		if b, err := json.Marshal(arms); err == nil {
			row.SearchJSON = b
		}
	}
	return row
}

package game

// Outcome is the result of a game. Side0Wins and Side1Wins equal the
// winning side's index.
type Outcome int

const (
	Unfinished Outcome = -2
	Draw       Outcome = -1
	Side0Wins  Outcome = 0
	Side1Wins  Outcome = 1
)

// Value scores a finished game from side's point of view: 1 win, 0.5 draw, 0 loss.
func (o Outcome) Value(side int) float64 {
	switch o {
	case Draw:
		return 0.5
	case Outcome(side):
		return 1
	default:
		return 0
	}
}

func (o Outcome) String() string {
	switch o {
	case Unfinished:
		return "unfinished"
	case Draw:
		return "draw"
	case Side0Wins:
		return "side0"
	case Side1Wins:
		return "side1"
	}
	return "unknown"
}

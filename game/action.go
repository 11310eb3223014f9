package game

import "fmt"

// Action is a single unit's order for one turn. The numeric values are the
// codes exchanged with the match server.
type Action int8

const (
	Invalid Action = iota - 2
	Stay
	Up
	Right
	Down
	Left
	UpShoot
	RightShoot
	DownShoot
	LeftShoot
)

// Actions lists every submittable action in code order.
var Actions = [...]Action{Stay, Up, Right, Down, Left, UpShoot, RightShoot, DownShoot, LeftShoot}

// Direction offsets indexed by Up, Right, Down, Left.
var (
	DX = [4]int{0, 1, 0, -1}
	DY = [4]int{-1, 0, 1, 0}
)

func (a Action) IsMove() bool  { return a >= Up && a <= Left }
func (a Action) IsShoot() bool { return a >= UpShoot && a <= LeftShoot }

// Direction returns 0..3 for moves and shots, -1 otherwise.
func (a Action) Direction() int {
	if a >= Up {
		return int(a) % 4
	}
	return -1
}

// Opposes reports whether a and b point in opposite directions.
func (a Action) Opposes(b Action) bool {
	return a >= Up && b >= Up && (int(a)+2)%4 == int(b)%4
}

var actionNames = map[Action]string{
	Invalid:    "invalid",
	Stay:       "stay",
	Up:         "up",
	Right:      "right",
	Down:       "down",
	Left:       "left",
	UpShoot:    "up-shoot",
	RightShoot: "right-shoot",
	DownShoot:  "down-shoot",
	LeftShoot:  "left-shoot",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int8(a))
}

// JointAction holds one action per unit of a side.
type JointAction [UnitsPerSide]Action

// Idle is the joint action used for a side that is not being queried.
var Idle = JointAction{Stay, Stay}

func (j JointAction) String() string {
	return fmt.Sprintf("(%s, %s)", j[0], j[1])
}

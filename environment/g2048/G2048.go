// Package g2048 implements the 2048 sliding-tile environment. Tiles
// are stored as exponents (a tile showing 2^n is stored as n, with 0
// meaning an empty cell). Each move slides and merges tiles toward one
// of the four cardinal directions; after every board-changing move a
// new tile spawns in a random empty cell. An episode finishes when no
// move can change the board.
//
// Rewards: -11 for a move that changes nothing, -10 for the move that
// ends the game, +1 otherwise.
package g2048

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/nusmiz/2048-impala/action"
	"github.com/nusmiz/2048-impala/environment"
)

const (
	BoardSize      = 4
	MaxNumber      = BoardSize*BoardSize + 1
	ConvKernelSize = 3
	NumActions     = 4

	// Rewards
	NoChangeReward float64 = -11
	GameOverReward float64 = -10
	StepReward     float64 = 1
)

// Board is the 4x4 grid of tile exponents. It is a value type, so
// Clone is a plain copy.
type Board [BoardSize][BoardSize]uint8

// Clone returns an independent copy of the board
func (b Board) Clone() Board {
	return b
}

// at reads the cell (x, y) of the board viewed under one of the 8
// symmetries of the square. View 0 is the identity; views 1-3 are
// rotations and 4-7 their reflections. Sliding "left" under view d
// realises each of the four moves and, for feature extraction, each of
// the 8 symmetric images of the board.
func (b *Board) at(view, x, y int) uint8 {
	r, c := viewIndex(view, x, y)
	return b[r][c]
}

func (b *Board) set(view, x, y int, v uint8) {
	r, c := viewIndex(view, x, y)
	b[r][c] = v
}

func viewIndex(view, x, y int) (int, int) {
	switch view {
	case 0:
		return y, x
	case 1:
		return BoardSize - 1 - x, y
	case 2:
		return BoardSize - 1 - y, BoardSize - 1 - x
	case 3:
		return x, BoardSize - 1 - y
	case 4:
		return x, y
	case 5:
		return y, BoardSize - 1 - x
	case 6:
		return BoardSize - 1 - x, BoardSize - 1 - y
	default:
		return BoardSize - 1 - y, x
	}
}

// viewOf maps a movement direction to the view under which the move is
// a slide toward x = 0
func viewOf(a action.FourDirections) int {
	switch a {
	case action.Left:
		return 0
	case action.Right:
		return 2
	case action.Up:
		return 3
	default: // Down
		return 1
	}
}

// slide performs a slide-and-merge toward x = 0 under the given view.
// Equal neighbours merge into a tile one exponent higher; a tile
// merges at most once per move.
func slide(b *Board, view int) {
	for y := 0; y < BoardSize; y++ {
		for newX := 0; newX < BoardSize; newX++ {
			var val1, val2 uint8
			for x := newX; x < BoardSize; x++ {
				if v := b.at(view, x, y); v != 0 {
					if val1 == 0 {
						val1 = v
						b.set(view, x, y, 0)
					} else {
						val2 = v
						b.set(view, x, y, 0)
						break
					}
				}
			}
			if val1 == 0 {
				break
			}
			if val1 == val2 {
				b.set(view, newX, y, val1+1)
			} else {
				b.set(view, newX, y, val1)
				if val2 != 0 {
					b.set(view, newX+1, y, val2)
				}
			}
		}
	}
}

// G2048 implements the environment. It is not safe for concurrent
// use; every actor owns its own instance.
type G2048 struct {
	state      Board
	rng        *rand.Rand
	renderPath string
}

var _ environment.Environment[Board, action.FourDirections] = (*G2048)(nil)

// New returns a new 2048 environment seeded with seed
func New(seed uint64) *G2048 {
	return &G2048{rng: rand.New(rand.NewSource(seed))}
}

// NewWithRender returns a new environment whose Render method draws
// the board to a PNG file at path
func NewWithRender(seed uint64, path string) *G2048 {
	g := New(seed)
	g.renderPath = path
	return g
}

// Reset clears the board, spawns the two initial tiles, and returns
// the starting observation
func (g *G2048) Reset() Board {
	g.state = Board{}
	g.spawnTile()
	g.spawnTile()
	return g.state.Clone()
}

// Step slides the board toward the given direction. A move that
// changes nothing leaves the board as is and spawns no tile.
func (g *G2048) Step(a action.FourDirections) (Board, float64,
	environment.Status) {

	prev := g.state
	slide(&g.state, viewOf(a))
	if g.state == prev {
		return g.state.Clone(), NoChangeReward, environment.Running
	}
	g.spawnTile()
	if g.isGameOver() {
		return g.state.Clone(), GameOverReward, environment.Finished
	}
	return g.state.Clone(), StepReward, environment.Running
}

// IsValidAction reports whether sliding toward the given direction
// would change the board
func (g *G2048) IsValidAction(a action.FourDirections) bool {
	temp := g.state
	slide(&temp, viewOf(a))
	return temp != g.state
}

// countEmpty returns the number of empty cells
func (g *G2048) countEmpty() int {
	count := 0
	for _, row := range g.state {
		for _, v := range row {
			if v == 0 {
				count++
			}
		}
	}
	return count
}

// spawnTile places a new tile in a uniformly random empty cell. The
// tile has exponent 2 with probability 1/10 and exponent 1 otherwise.
func (g *G2048) spawnTile() {
	position := g.rng.Intn(g.countEmpty())
	for y := range g.state {
		for x, v := range g.state[y] {
			if v != 0 {
				continue
			}
			if position == 0 {
				if g.rng.Intn(10) == 0 {
					g.state[y][x] = 2
				} else {
					g.state[y][x] = 1
				}
				return
			}
			position--
		}
	}
}

// isGameOver reports whether no move can change the board
func (g *G2048) isGameOver() bool {
	for view := 0; view < NumActions; view++ {
		temp := g.state
		slide(&temp, view)
		if temp != g.state {
			return false
		}
	}
	return true
}

// ObservationSpec returns the observation specification: the 16 cells
// of the board, each a tile exponent in [0, MaxNumber]
func (g *G2048) ObservationSpec() environment.Spec {
	cells := BoardSize * BoardSize
	shape := mat.NewVecDense(cells, nil)
	lower := mat.NewVecDense(cells, nil)
	upper := mat.NewVecDense(cells, nil)
	for i := 0; i < cells; i++ {
		upper.SetVec(i, float64(MaxNumber))
	}
	return environment.NewSpec(shape, environment.Observation, lower, upper)
}

// ActionSpec returns the action specification: a single discrete
// action in [0, 3]
func (g *G2048) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lower := mat.NewVecDense(1, nil)
	upper := mat.NewVecDense(1, []float64{NumActions - 1})
	return environment.NewSpec(shape, environment.Action, lower, upper)
}

package g2048

import (
	"testing"

	"github.com/nusmiz/2048-impala/action"
	"github.com/nusmiz/2048-impala/environment"
)

func TestSlideMerges(t *testing.T) {
	tests := []struct {
		name   string
		board  Board
		dir    action.FourDirections
		expect Board
	}{
		{
			name:   "merge pair left",
			board:  Board{{1, 1, 0, 0}},
			dir:    action.Left,
			expect: Board{{2, 0, 0, 0}},
		},
		{
			name:   "merge once per move",
			board:  Board{{1, 1, 1, 1}},
			dir:    action.Left,
			expect: Board{{2, 2, 0, 0}},
		},
		{
			name:   "nearest pair merges first",
			board:  Board{{1, 1, 1, 0}},
			dir:    action.Left,
			expect: Board{{2, 1, 0, 0}},
		},
		{
			name:   "no merge across gap of unequal",
			board:  Board{{1, 2, 1, 0}},
			dir:    action.Left,
			expect: Board{{1, 2, 1, 0}},
		},
		{
			name:   "slide right",
			board:  Board{{1, 0, 0, 1}},
			dir:    action.Right,
			expect: Board{{0, 0, 0, 2}},
		},
		{
			name: "slide up merges column",
			board: Board{
				{0, 0, 0, 0},
				{2, 0, 0, 0},
				{0, 0, 0, 0},
				{2, 0, 0, 0},
			},
			dir: action.Up,
			expect: Board{
				{3, 0, 0, 0},
				{0, 0, 0, 0},
				{0, 0, 0, 0},
				{0, 0, 0, 0},
			},
		},
		{
			name: "slide down",
			board: Board{
				{1, 0, 0, 0},
				{0, 0, 0, 0},
				{1, 0, 0, 0},
				{0, 0, 0, 0},
			},
			dir: action.Down,
			expect: Board{
				{0, 0, 0, 0},
				{0, 0, 0, 0},
				{0, 0, 0, 0},
				{2, 0, 0, 0},
			},
		},
	}

	for _, test := range tests {
		b := test.board
		slide(&b, viewOf(test.dir))
		if b != test.expect {
			t.Errorf("%v: got %v, want %v", test.name, b, test.expect)
		}
	}
}

func TestStepNoChange(t *testing.T) {
	g := New(1)
	g.state = Board{{1, 2, 1, 2}} // nothing can slide left

	_, reward, status := g.Step(action.Left)
	if reward != NoChangeReward {
		t.Errorf("reward: got %v, want %v", reward, NoChangeReward)
	}
	if status != environment.Running {
		t.Errorf("status: got %v, want Running", status)
	}
	if g.state != (Board{{1, 2, 1, 2}}) {
		t.Errorf("board changed on no-op move: %v", g.state)
	}
}

func TestStepSpawnsTile(t *testing.T) {
	g := New(1)
	g.state = Board{{1, 1, 0, 0}}

	_, reward, status := g.Step(action.Left)
	if reward != StepReward {
		t.Errorf("reward: got %v, want %v", reward, StepReward)
	}
	if status != environment.Running {
		t.Errorf("status: got %v, want Running", status)
	}

	// The merge leaves one tile; the spawn adds a second
	count := 0
	for _, row := range g.state {
		for _, v := range row {
			if v != 0 {
				count++
			}
		}
	}
	if count != 2 {
		t.Errorf("tiles after move: got %d, want 2", count)
	}
}

func TestResetSpawnsTwoTiles(t *testing.T) {
	g := New(7)
	board := g.Reset()

	count := 0
	for _, row := range board {
		for _, v := range row {
			if v != 0 {
				if v != 1 && v != 2 {
					t.Errorf("initial tile exponent: got %d, want 1 or 2", v)
				}
				count++
			}
		}
	}
	if count != 2 {
		t.Errorf("initial tiles: got %d, want 2", count)
	}
}

func TestIsValidAction(t *testing.T) {
	g := New(1)
	g.state = Board{
		{1, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}

	if g.IsValidAction(action.Left) {
		t.Error("left should be invalid for a tile already at the left edge")
	}
	if g.IsValidAction(action.Up) {
		t.Error("up should be invalid for a tile already at the top edge")
	}
	if !g.IsValidAction(action.Right) {
		t.Error("right should be valid")
	}
	if !g.IsValidAction(action.Down) {
		t.Error("down should be valid")
	}
}

func TestGameOver(t *testing.T) {
	g := New(1)
	// Checkerboard of alternating exponents: no move changes anything
	g.state = Board{
		{1, 2, 1, 2},
		{2, 1, 2, 1},
		{1, 2, 1, 2},
		{2, 1, 2, 1},
	}
	if !g.isGameOver() {
		t.Error("checkerboard should be game over")
	}

	g.state[0][0] = 2 // now a vertical merge exists
	if g.isGameOver() {
		t.Error("board with a possible merge should not be game over")
	}
}

func TestMakeBatchShapesAndContent(t *testing.T) {
	boards := []*Board{
		{{1, 0, 0, 0}},
		{{0, 2, 0, 0}},
		{},
	}

	var batch ObsBatch
	Batcher{}.MakeBatch(boards, &batch)

	if got := batch.Raw.Shape(); got[0] != 3 || got[1] != 8 ||
		got[2] != MaxNumber+1 || got[3] != 16 {
		t.Fatalf("raw shape: got %v", got)
	}
	if got := batch.InvalidMask.Shape(); got[0] != 3 || got[1] != 4 {
		t.Fatalf("mask shape: got %v", got)
	}
	if batch.Len() != 3 {
		t.Fatalf("len: got %d, want 3", batch.Len())
	}

	// Sample 0, view 0: cell (0,0) holds exponent 1, so the exponent-1
	// plane is hot at cell 0 and the exponent-0 plane is cold there
	raw := batch.RawData()
	cells := BoardSize * BoardSize
	if raw[1*cells+0] != 1 {
		t.Error("raw: exponent-1 plane should be hot at cell 0")
	}
	if raw[0*cells+0] != 0 {
		t.Error("raw: exponent-0 plane should be cold at cell 0")
	}
	// Every other cell of sample 0 is empty
	if raw[0*cells+1] != 1 {
		t.Error("raw: exponent-0 plane should be hot at cell 1")
	}

	// One-hot property: each (view, cell) column of each sample sums
	// to exactly 1 over exponent planes
	for s := 0; s < 3; s++ {
		base := s * RawFeatures
		for view := 0; view < 8; view++ {
			for cell := 0; cell < cells; cell++ {
				sum := 0.0
				for n := 0; n <= MaxNumber; n++ {
					sum += raw[base+view*(MaxNumber+1)*cells+n*cells+cell]
				}
				if sum != 1 {
					t.Fatalf("raw one-hot: sample %d view %d cell %d sums "+
						"to %v", s, view, cell, sum)
				}
			}
		}
	}

	// Sample 0 has a single tile at the left edge: left and up are
	// invalid, right and down valid
	mask := batch.InvalidMask.Data().([]float64)
	if mask[int(action.Left)] != 1 || mask[int(action.Up)] != 1 {
		t.Error("mask: left and up should be invalid for sample 0")
	}
	if mask[int(action.Right)] != 0 || mask[int(action.Down)] != 0 {
		t.Error("mask: right and down should be valid for sample 0")
	}
}

func TestMakeBatchReusesBacking(t *testing.T) {
	boards := []*Board{{}, {}}

	var batch ObsBatch
	Batcher{}.MakeBatch(boards, &batch)
	first := &batch.rawBacking[0]

	Batcher{}.MakeBatch(boards, &batch)
	if first != &batch.rawBacking[0] {
		t.Error("makebatch: backing should be reused for an equal-size batch")
	}
}

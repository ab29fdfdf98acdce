package action

import "testing"

func TestEnumSpaceRoundTrip(t *testing.T) {
	space := FourDirectionsSpace()

	if space.NumActions() != 4 {
		t.Errorf("numactions: got %d, want 4", space.NumActions())
	}

	for id := int64(0); id < space.NumActions(); id++ {
		a := space.FromID(id)
		if back := space.ToID(a); back != id {
			t.Errorf("round trip: id %d -> action %v -> id %d", id, a, back)
		}
	}
}

func TestPairSpaceBijection(t *testing.T) {
	space := AtariActionSpace()

	if space.NumActions() != 18 {
		t.Errorf("numactions: got %d, want 18", space.NumActions())
	}

	// Every id must map to a distinct action and back to itself
	seen := make(map[AtariAction]bool)
	for id := int64(0); id < space.NumActions(); id++ {
		a := space.FromID(id)
		if seen[a] {
			t.Errorf("fromid: action %v produced twice", a)
		}
		seen[a] = true

		if back := space.ToID(a); back != id {
			t.Errorf("round trip: id %d -> %v -> id %d", id, a, back)
		}
	}
}

func TestPairSpaceStrides(t *testing.T) {
	// The first sub-space varies fastest
	space := AtariActionSpace()

	a := space.FromID(0)
	if a.First != Neutral || a.Second != NoButton {
		t.Errorf("id 0: got %v", a)
	}

	a = space.FromID(8)
	if a.First != DownRight || a.Second != NoButton {
		t.Errorf("id 8: got %v", a)
	}

	a = space.FromID(9)
	if a.First != Neutral || a.Second != Fire {
		t.Errorf("id 9: got %v", a)
	}
}

func TestEnumSpaceOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("fromid: expected panic for out-of-range id")
		}
	}()
	FourDirectionsSpace().FromID(4)
}

package brackets

import (
	"errors"
	"fmt"
	"testing"
)

func testEntrants(n int) []Entrant {
	out := make([]Entrant, n)
	for i := range out {
		out[i] = Entrant{ID: i + 1, Name: fmt.Sprintf("C%d", i+1)}
	}
	return out
}

func mustNew(t *testing.T, n int, format Format) *Bracket {
	t.Helper()
	b, err := New(testEntrants(n), format, false)
	if err != nil {
		t.Fatalf("New(%d, %s): %v", n, format, err)
	}
	return b
}

func TestNewRejectsTooFewEntrants(t *testing.T) {
	for _, n := range []int{0, 1} {
		_, err := New(testEntrants(n), FormatSingle, false)
		if !errors.Is(err, ErrInsufficientEntrants) {
			t.Fatalf("New with %d entrants: expected ErrInsufficientEntrants, got %v", n, err)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(testEntrants(4), Format("swiss"), false); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestTopologySizes(t *testing.T) {
	cases := []struct {
		n             int
		size          int
		winnersRounds int
		losersRounds  int
		loserWidths   []int
	}{
		{n: 2, size: 2, winnersRounds: 1, losersRounds: 0, loserWidths: []int{}},
		{n: 3, size: 4, winnersRounds: 2, losersRounds: 2, loserWidths: []int{1, 1}},
		{n: 4, size: 4, winnersRounds: 2, losersRounds: 2, loserWidths: []int{1, 1}},
		{n: 5, size: 8, winnersRounds: 3, losersRounds: 4, loserWidths: []int{2, 2, 1, 1}},
		{n: 7, size: 8, winnersRounds: 3, losersRounds: 4, loserWidths: []int{2, 2, 1, 1}},
		{n: 8, size: 8, winnersRounds: 3, losersRounds: 4, loserWidths: []int{2, 2, 1, 1}},
		{n: 9, size: 16, winnersRounds: 4, losersRounds: 6, loserWidths: []int{4, 4, 2, 2, 1, 1}},
		{n: 17, size: 32, winnersRounds: 5, losersRounds: 8, loserWidths: []int{8, 8, 4, 4, 2, 2, 1, 1}},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d", tc.n), func(t *testing.T) {
			b := mustNew(t, tc.n, FormatDouble)
			if b.Size != tc.size {
				t.Fatalf("size: expected %d, got %d", tc.size, b.Size)
			}
			if b.WinnersRounds != tc.winnersRounds {
				t.Fatalf("winners rounds: expected %d, got %d", tc.winnersRounds, b.WinnersRounds)
			}
			if b.LosersRounds != tc.losersRounds {
				t.Fatalf("losers rounds: expected %d, got %d", tc.losersRounds, b.LosersRounds)
			}
			for r := 1; r <= b.WinnersRounds; r++ {
				if want, got := tc.size>>uint(r), len(b.Winners[r-1]); want != got {
					t.Fatalf("winners round %d width: expected %d, got %d", r, want, got)
				}
			}
			if len(b.Losers) != len(tc.loserWidths) {
				t.Fatalf("losers rounds allocated: expected %d, got %d", len(tc.loserWidths), len(b.Losers))
			}
			for r, want := range tc.loserWidths {
				if got := len(b.Losers[r]); got != want {
					t.Fatalf("losers round %d width: expected %d, got %d", r+1, want, got)
				}
			}
			if b.GrandFinal == nil {
				t.Fatal("double elimination must allocate a grand final")
			}
		})
	}
}

func TestSingleFormatHasNoLosersBracket(t *testing.T) {
	b := mustNew(t, 8, FormatSingle)
	if b.LosersRounds != 0 || len(b.Losers) != 0 {
		t.Fatalf("expected no losers rounds, got %d", b.LosersRounds)
	}
	if b.GrandFinal != nil {
		t.Fatal("single elimination must not allocate a grand final")
	}
}

func TestSeedingByeCounts(t *testing.T) {
	for n := 2; n <= 33; n++ {
		b := mustNew(t, n, FormatSingle)
		byes := b.Size - n

		single, pairs, empty := 0, 0, 0
		for _, m := range b.Winners[0] {
			switch {
			case m.Slot1 != nil && m.Slot2 != nil:
				pairs++
			case m.Slot1 != nil || m.Slot2 != nil:
				single++
			default:
				empty++
			}
		}
		if single != byes {
			t.Fatalf("n=%d: expected %d single-occupant round-1 matches, got %d", n, byes, single)
		}
		if empty != 0 {
			t.Fatalf("n=%d: seeding produced %d empty round-1 matches", n, empty)
		}
		if pairs != n-b.Size/2 {
			t.Fatalf("n=%d: expected %d full round-1 matches, got %d", n, n-b.Size/2, pairs)
		}
	}
}

func TestSeedingPlacesEntrantsInListOrder(t *testing.T) {
	b := mustNew(t, 5, FormatSingle)
	round1 := b.Winners[0]

	wantSlots := [][2]int{{1, 2}, {3, 0}, {4, 0}, {5, 0}}
	for i, want := range wantSlots {
		got1, got2 := 0, 0
		if round1[i].Slot1 != nil {
			got1 = round1[i].Slot1.ID
		}
		if round1[i].Slot2 != nil {
			got2 = round1[i].Slot2.ID
		}
		if got1 != want[0] || got2 != want[1] {
			t.Fatalf("round 1 match %d: expected slots %v, got [%d %d]", i, want, got1, got2)
		}
	}
}

func TestByesResolveAtConstruction(t *testing.T) {
	b := mustNew(t, 5, FormatSingle)

	for i := 1; i <= 3; i++ {
		m := b.Winners[0][i]
		if !m.Bye {
			t.Fatalf("round 1 match %d: expected a bye", i)
		}
		if m.Winner == nil || m.Winner.ID != i+2 {
			t.Fatalf("round 1 match %d: bye winner not set", i)
		}
		if m.DecidedAt == nil {
			t.Fatalf("round 1 match %d: bye must carry a decision time", i)
		}
	}

	// Two bye winners meet in round 2 and form a playable match at build.
	r2 := b.Winners[1]
	if r2[1].Slot1 == nil || r2[1].Slot1.ID != 4 || r2[1].Slot2 == nil || r2[1].Slot2.ID != 5 {
		t.Fatalf("round 2 match 1: expected entrants 4 and 5, got %+v / %+v", r2[1].Slot1, r2[1].Slot2)
	}
	if r2[1].Bye || r2[1].Winner != nil {
		t.Fatal("round 2 match 1 is a real match and must not auto-resolve")
	}
	if r2[0].Slot2 == nil || r2[0].Slot2.ID != 3 {
		t.Fatal("round 2 match 0: bye winner 3 should occupy slot 2")
	}
	if r2[0].Slot1 != nil {
		t.Fatal("round 2 match 0 slot 1 must wait for the round 1 winner")
	}
}

func TestByeNeverFiresForUnplayedFeeder(t *testing.T) {
	b := mustNew(t, 5, FormatSingle)

	// Round 2 match 0 has one filled slot (the bye winner) but its other
	// feeder is a real, merely undecided match.
	m := b.Winners[1][0]
	if m.Bye || m.Winner != nil {
		t.Fatalf("match with an unplayed feeder auto-resolved: %+v", m)
	}
	if m.Dead {
		t.Fatal("match with a live feeder marked dead")
	}
}

func TestInitialCurrentMatch(t *testing.T) {
	for _, format := range []Format{FormatSingle, FormatDouble} {
		for n := 2; n <= 9; n++ {
			b := mustNew(t, n, format)
			cur := b.CurrentMatch()
			if cur == nil {
				t.Fatalf("n=%d %s: fresh bracket has no current match", n, format)
			}
			if !cur.Decidable() {
				t.Fatalf("n=%d %s: current match %+v is not decidable", n, format, cur.Coord())
			}
			if cur.Section != SectionWinners {
				t.Fatalf("n=%d %s: current match must start in the winners bracket", n, format)
			}
		}
	}
}

func TestDeadLosersCells(t *testing.T) {
	cases := []struct {
		n    int
		dead []Coord
		live []Coord
	}{
		{
			n:    5,
			dead: []Coord{{SectionLosers, 1, 1}},
			live: []Coord{{SectionLosers, 1, 0}, {SectionLosers, 2, 0}, {SectionLosers, 2, 1}, {SectionLosers, 3, 0}, {SectionLosers, 4, 0}},
		},
		{
			n:    6,
			dead: []Coord{{SectionLosers, 1, 1}},
			live: []Coord{{SectionLosers, 1, 0}, {SectionLosers, 2, 1}},
		},
		{
			n:    8,
			dead: nil,
			live: []Coord{{SectionLosers, 1, 0}, {SectionLosers, 1, 1}, {SectionLosers, 4, 0}},
		},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d", tc.n), func(t *testing.T) {
			b := mustNew(t, tc.n, FormatDouble)
			for _, at := range tc.dead {
				m := b.MatchAt(at)
				if m == nil || !m.Dead {
					t.Fatalf("expected dead cell at %v", at)
				}
			}
			for _, at := range tc.live {
				m := b.MatchAt(at)
				if m == nil || m.Dead {
					t.Fatalf("expected live cell at %v", at)
				}
			}
		})
	}
}

func TestShuffleKeepsEntrantSet(t *testing.T) {
	entrants := testEntrants(7)
	b, err := New(entrants, FormatSingle, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ids := b.EntrantIDs()
	if len(ids) != 7 {
		t.Fatalf("expected 7 distinct entrants placed, got %d", len(ids))
	}
	seen := make(map[int]bool)
	for _, id := range ids {
		if id < 1 || id > 7 || seen[id] {
			t.Fatalf("unexpected or duplicate entrant id %d", id)
		}
		seen[id] = true
	}

	byes := 0
	for _, m := range b.Winners[0] {
		if m.Slot1 != nil && m.Slot2 == nil {
			byes++
		}
	}
	if byes != b.Size-7 {
		t.Fatalf("shuffled seeding changed the bye count: expected %d, got %d", b.Size-7, byes)
	}
}

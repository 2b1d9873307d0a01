package brackets

import (
	"errors"
	"testing"
)

func standingIDs(t *testing.T, b *Bracket) []int {
	t.Helper()
	standings, err := b.Standings()
	if err != nil {
		t.Fatalf("Standings: %v", err)
	}
	ids := make([]int, len(standings))
	for i, e := range standings {
		ids[i] = e.ID
	}
	return ids
}

func TestStandingsRequireCompletion(t *testing.T) {
	b := mustNew(t, 4, FormatSingle)
	if _, err := b.Standings(); !errors.Is(err, ErrNotComplete) {
		t.Fatalf("expected ErrNotComplete, got %v", err)
	}
}

func TestSingleEliminationStandings(t *testing.T) {
	b := mustNew(t, 4, FormatSingle)
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 0}, 1)
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 1}, 4)
	b = mustAdvance(t, b, Coord{SectionWinners, 2, 0}, 4)

	ids := standingIDs(t, b)
	if len(ids) != 4 || ids[0] != 4 || ids[1] != 1 {
		t.Fatalf("expected champion 4 and runner-up 1, got %v", ids)
	}
	// Semifinal losers tie for third, listed by match index.
	if ids[2] != 2 || ids[3] != 3 {
		t.Fatalf("expected tied semifinal losers [2 3], got %v", ids[2:])
	}
}

func TestSingleEliminationStandingsSkipByeSemifinals(t *testing.T) {
	// n=3: the second semifinal is a bye, so only one semifinal loser
	// exists and every entrant ends up ranked.
	b := mustNew(t, 3, FormatSingle)
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 0}, 2)
	b = mustAdvance(t, b, Coord{SectionWinners, 2, 0}, 3)

	ids := standingIDs(t, b)
	want := []int{3, 2, 1}
	if len(ids) != 3 || ids[0] != want[0] || ids[1] != want[1] || ids[2] != want[2] {
		t.Fatalf("expected standings %v, got %v", want, ids)
	}
}

func TestTwoEntrantStandings(t *testing.T) {
	b := mustNew(t, 2, FormatSingle)
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 0}, 2)

	ids := standingIDs(t, b)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 1 {
		t.Fatalf("expected [2 1], got %v", ids)
	}
}

func TestDoubleEliminationStandings(t *testing.T) {
	b := mustNew(t, 4, FormatDouble)
	done, _ := driveToCompletion(t, b)

	ids := standingIDs(t, done)
	if len(ids) != 2 {
		t.Fatalf("double elimination ranks exactly two entrants, got %v", ids)
	}
	if ids[0] != done.Champion.ID {
		t.Fatalf("champion must lead the standings, got %v", ids)
	}
	gf := done.GrandFinal
	runnerUp := gf.other(done.Champion.ID)
	if runnerUp == nil || ids[1] != runnerUp.ID {
		t.Fatalf("runner-up must be the other grand finalist, got %v", ids)
	}
}

func TestDoubleEliminationGrandFinalByeStandings(t *testing.T) {
	b := mustNew(t, 2, FormatDouble)
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 0}, 1)

	ids := standingIDs(t, b)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected [1 2], got %v", ids)
	}
}

func TestStandingsHaveNoDuplicates(t *testing.T) {
	for _, format := range []Format{FormatSingle, FormatDouble} {
		for n := 2; n <= 9; n++ {
			b := mustNew(t, n, format)
			done, _ := driveToCompletion(t, b)
			seen := make(map[int]bool)
			for _, id := range standingIDs(t, done) {
				if seen[id] {
					t.Fatalf("%s n=%d: duplicate id %d in standings", format, n, id)
				}
				seen[id] = true
			}
		}
	}
}

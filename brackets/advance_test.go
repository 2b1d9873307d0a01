package brackets

import (
	"errors"
	"fmt"
	"testing"
)

func mustAdvance(t *testing.T, b *Bracket, at Coord, winnerID int) *Bracket {
	t.Helper()
	m := b.MatchAt(at)
	if m == nil {
		t.Fatalf("no match at %v", at)
	}
	w := m.slot(winnerID)
	if w == nil {
		t.Fatalf("entrant %d is not a contestant at %v", winnerID, at)
	}
	next, err := b.Advance(at, *w)
	if err != nil {
		t.Fatalf("Advance(%v, %d): %v", at, winnerID, err)
	}
	return next
}

// driveToCompletion repeatedly decides the current match in favor of its
// slot-1 occupant and returns the finished bracket plus the number of
// human decisions it took.
func driveToCompletion(t *testing.T, b *Bracket) (*Bracket, int) {
	t.Helper()
	limit := b.cellCount() + 1
	calls := 0
	for !b.Complete {
		if calls > limit {
			t.Fatalf("bracket did not complete within %d advancements", limit)
		}
		cur := b.CurrentMatch()
		if cur == nil {
			t.Fatal("incomplete bracket without a current match")
		}
		b = mustAdvance(t, b, cur.Coord(), cur.Slot1.ID)
		calls++
	}
	return b, calls
}

func TestFourEntrantSingleElimination(t *testing.T) {
	b := mustNew(t, 4, FormatSingle)
	if b.Size != 4 || b.WinnersRounds != 2 {
		t.Fatalf("expected a 4-slot 2-round bracket, got size %d rounds %d", b.Size, b.WinnersRounds)
	}
	for _, m := range b.Winners[0] {
		if m.Bye || m.Dead {
			t.Fatalf("n=4 must have no byes or dead matches, got %+v", m)
		}
	}

	b = mustAdvance(t, b, Coord{SectionWinners, 1, 0}, 1)
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 1}, 3)

	final := b.Winners[1][0]
	if final.Slot1 == nil || final.Slot1.ID != 1 || final.Slot2 == nil || final.Slot2.ID != 3 {
		t.Fatalf("final should pair entrants 1 and 3, got %+v / %+v", final.Slot1, final.Slot2)
	}

	b = mustAdvance(t, b, Coord{SectionWinners, 2, 0}, 3)
	if !b.Complete {
		t.Fatal("bracket should be complete after three decisions")
	}
	if b.Champion == nil || b.Champion.ID != 3 {
		t.Fatalf("expected champion 3, got %+v", b.Champion)
	}
	if b.Current != nil {
		t.Fatalf("complete bracket still has current match %v", *b.Current)
	}
}

func TestFiveEntrantSingleEliminationDecisionCount(t *testing.T) {
	b := mustNew(t, 5, FormatSingle)
	done, calls := driveToCompletion(t, b)
	if calls != 4 {
		t.Fatalf("expected 4 human decisions (7 cells - 3 byes), got %d", calls)
	}
	if done.Champion == nil {
		t.Fatal("no champion after completion")
	}
}

func TestFourEntrantDoubleElimination(t *testing.T) {
	b := mustNew(t, 4, FormatDouble)
	if b.WinnersRounds != 2 || b.LosersRounds != 2 || b.GrandFinal == nil {
		t.Fatalf("expected 2 winners rounds, 2 losers rounds and a grand final, got %d/%d", b.WinnersRounds, b.LosersRounds)
	}

	b = mustAdvance(t, b, Coord{SectionWinners, 1, 0}, 1) // 2 drops to losers
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 1}, 3) // 4 drops to losers

	l1 := b.Losers[0][0]
	if l1.Slot1 == nil || l1.Slot1.ID != 2 || l1.Slot2 == nil || l1.Slot2.ID != 4 {
		t.Fatalf("losers round 1 should pair entrants 2 and 4, got %+v / %+v", l1.Slot1, l1.Slot2)
	}

	b = mustAdvance(t, b, Coord{SectionWinners, 2, 0}, 1) // 3 drops to losers final
	if b.GrandFinal.Slot1 == nil || b.GrandFinal.Slot1.ID != 1 {
		t.Fatal("winners-final winner must occupy grand-final slot 1")
	}

	if cur := b.CurrentMatch(); cur == nil || cur.Coord() != (Coord{SectionLosers, 1, 0}) {
		t.Fatalf("expected losers round 1 to be current, got %+v", cur)
	}
	b = mustAdvance(t, b, Coord{SectionLosers, 1, 0}, 2) // 4 is eliminated

	lf := b.Losers[1][0]
	if lf.Slot1 == nil || lf.Slot1.ID != 3 || lf.Slot2 == nil || lf.Slot2.ID != 2 {
		t.Fatalf("losers final should pair 3 (drop) and 2 (climber), got %+v / %+v", lf.Slot1, lf.Slot2)
	}
	b = mustAdvance(t, b, Coord{SectionLosers, 2, 0}, 3) // 2 is eliminated

	gf := b.GrandFinal
	if gf.Slot2 == nil || gf.Slot2.ID != 3 {
		t.Fatal("losers-final winner must occupy grand-final slot 2")
	}
	b = mustAdvance(t, b, Coord{SectionGrandFinal, 1, 0}, 1)

	if !b.Complete || b.Champion == nil || b.Champion.ID != 1 {
		t.Fatalf("expected champion 1, got %+v", b.Champion)
	}

	// A double loser gets no third match: entrant 4 lost in winners round
	// 1 and losers round 1 and must appear nowhere else.
	appearances := 0
	b.eachMatch(func(m *Match) {
		for _, e := range []*Entrant{m.Slot1, m.Slot2} {
			if e != nil && e.ID == 4 {
				appearances++
			}
		}
	})
	if appearances != 2 {
		t.Fatalf("entrant 4 should appear in exactly two matches, got %d", appearances)
	}
}

func TestFiveEntrantDoubleEliminationFullRun(t *testing.T) {
	b := mustNew(t, 5, FormatDouble)

	steps := []struct {
		at     Coord
		winner int
	}{
		{Coord{SectionWinners, 1, 0}, 1}, // 2 drops, wins losers bye, waits in L2
		{Coord{SectionWinners, 2, 0}, 1}, // 3 drops to L2
		{Coord{SectionWinners, 2, 1}, 4}, // 5 drops, bye-cascades into L3
		{Coord{SectionWinners, 3, 0}, 1}, // 4 drops to the losers final
		{Coord{SectionLosers, 2, 0}, 2},
		{Coord{SectionLosers, 3, 0}, 5},
		{Coord{SectionLosers, 4, 0}, 4},
		{Coord{SectionGrandFinal, 1, 0}, 1},
	}

	for i, step := range steps {
		cur := b.CurrentMatch()
		if cur == nil {
			t.Fatalf("step %d: no current match", i)
		}
		if cur.Coord() != step.at {
			t.Fatalf("step %d: expected current %v, got %v", i, step.at, cur.Coord())
		}
		b = mustAdvance(t, b, step.at, step.winner)
	}

	if !b.Complete || b.Champion == nil || b.Champion.ID != 1 {
		t.Fatalf("expected champion 1, got %+v", b.Champion)
	}

	// The bye cascade placed 2 in losers round 2 and 5 in losers round 3
	// without a human decision.
	if l := b.Losers[0][0]; !l.Bye || l.Winner == nil || l.Winner.ID != 2 {
		t.Fatalf("losers round 1 should be a bye for entrant 2, got %+v", l)
	}
	if l := b.Losers[1][1]; !l.Bye || l.Winner == nil || l.Winner.ID != 5 {
		t.Fatalf("losers round 2 match 1 should be a bye for entrant 5, got %+v", l)
	}
}

func TestTwoEntrantDoubleEliminationGrandFinalBye(t *testing.T) {
	b := mustNew(t, 2, FormatDouble)
	if b.LosersRounds != 0 {
		t.Fatalf("expected no losers rounds, got %d", b.LosersRounds)
	}

	b = mustAdvance(t, b, Coord{SectionWinners, 1, 0}, 2)

	if !b.Complete || b.Champion == nil || b.Champion.ID != 2 {
		t.Fatalf("expected immediate completion with champion 2, got %+v", b.Champion)
	}
	gf := b.GrandFinal
	if !gf.Bye || gf.Winner == nil || gf.Winner.ID != 2 {
		t.Fatalf("grand final should resolve as a bye, got %+v", gf)
	}
}

func TestAdvanceValidation(t *testing.T) {
	base := mustNew(t, 4, FormatSingle)
	decided := mustAdvance(t, base, Coord{SectionWinners, 1, 0}, 1)

	cases := []struct {
		name   string
		state  *Bracket
		at     Coord
		winner Entrant
	}{
		{
			name:   "missing coordinate",
			state:  base,
			at:     Coord{SectionWinners, 9, 0},
			winner: Entrant{ID: 1},
		},
		{
			name:   "losers section in single elimination",
			state:  base,
			at:     Coord{SectionLosers, 1, 0},
			winner: Entrant{ID: 1},
		},
		{
			name:   "match without both contestants",
			state:  base,
			at:     Coord{SectionWinners, 2, 0},
			winner: Entrant{ID: 1},
		},
		{
			name:   "already decided",
			state:  decided,
			at:     Coord{SectionWinners, 1, 0},
			winner: Entrant{ID: 2},
		},
		{
			name:   "winner not a contestant",
			state:  base,
			at:     Coord{SectionWinners, 1, 0},
			winner: Entrant{ID: 4},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.state.Advance(tc.at, tc.winner)
			if !errors.Is(err, ErrInvalidAdvancement) {
				t.Fatalf("expected ErrInvalidAdvancement, got %v", err)
			}
		})
	}
}

func TestAdvanceDoesNotMutatePriorState(t *testing.T) {
	s0 := mustNew(t, 4, FormatSingle)
	at := Coord{SectionWinners, 1, 0}

	s1 := mustAdvance(t, s0, at, 1)

	if s0.MatchAt(at).Winner != nil {
		t.Fatal("prior state gained a winner")
	}
	if s0.Current == nil || *s0.Current != at {
		t.Fatalf("prior state's current match changed: %v", s0.Current)
	}
	if s0.Winners[1][0].Slot1 != nil {
		t.Fatal("prior state's final gained a contestant")
	}
	if s1.MatchAt(at).Winner == nil || s1.Winners[1][0].Slot1 == nil {
		t.Fatal("new state missing the advancement effects")
	}

	// Undo is a pop to the retained snapshot: deciding the same match
	// differently from s0 must still work.
	s2 := mustAdvance(t, s0, at, 2)
	if s2.Winners[1][0].Slot1.ID != 2 || s1.Winners[1][0].Slot1.ID != 1 {
		t.Fatal("snapshots are not independent")
	}
}

func TestDriveToCompletionBounds(t *testing.T) {
	for _, format := range []Format{FormatSingle, FormatDouble} {
		for n := 2; n <= 17; n++ {
			t.Run(fmt.Sprintf("%s/n=%d", format, n), func(t *testing.T) {
				b := mustNew(t, n, format)
				total := b.cellCount()
				if format == FormatSingle && total != b.Size-1 {
					t.Fatalf("single elimination must have size-1 cells, got %d for size %d", total, b.Size)
				}
				done, calls := driveToCompletion(t, b)
				if calls > total {
					t.Fatalf("took %d advancements for %d cells", calls, total)
				}
				if done.Champion == nil || !done.Complete {
					t.Fatal("drive finished without a champion")
				}
				if done.Current != nil {
					t.Fatal("complete bracket retains a current match")
				}
			})
		}
	}
}

func TestEveryWinnersLoserDropsExactlyOnce(t *testing.T) {
	for n := 3; n <= 17; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			b := mustNew(t, n, FormatDouble)
			done, _ := driveToCompletion(t, b)

			// Collect every entrant who lost a decided, non-bye winners match.
			droppedRounds := make(map[int][]int)
			for _, round := range done.Winners {
				for _, m := range round {
					if m.Bye || m.Dead || m.Winner == nil {
						continue
					}
					loser := m.other(m.Winner.ID)
					if loser == nil {
						continue
					}
					droppedRounds[loser.ID] = append(droppedRounds[loser.ID], m.Round)
				}
			}

			for id, rounds := range droppedRounds {
				if len(rounds) != 1 {
					t.Fatalf("entrant %d lost %d winners matches", id, len(rounds))
				}
				found := 0
				for _, round := range done.Losers {
					for _, m := range round {
						if (m.Slot1 != nil && m.Slot1.ID == id) || (m.Slot2 != nil && m.Slot2.ID == id) {
							found++
						}
					}
				}
				if found == 0 {
					t.Fatalf("entrant %d lost a winners match but never appeared in the losers bracket", id)
				}
			}

			// Nobody occupies two slots of the same losers round.
			for r, round := range done.Losers {
				seen := make(map[int]int)
				for _, m := range round {
					for _, e := range []*Entrant{m.Slot1, m.Slot2} {
						if e != nil {
							seen[e.ID]++
						}
					}
				}
				for id, count := range seen {
					if count > 1 {
						t.Fatalf("entrant %d appears %d times in losers round %d", id, count, r+1)
					}
				}
			}
		})
	}
}

func TestDecidableLosersMatchCanBeAdvancedEarly(t *testing.T) {
	// Both round-1 winners matches are decided, so the losers opener is
	// fully populated while the winners final is still current. Advancing
	// it out of scan order is legal.
	b := mustNew(t, 4, FormatDouble)
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 0}, 1)
	b = mustAdvance(t, b, Coord{SectionWinners, 1, 1}, 3)

	if cur := b.CurrentMatch(); cur == nil || cur.Section != SectionWinners {
		t.Fatalf("expected the winners final to be current, got %+v", cur)
	}
	b = mustAdvance(t, b, Coord{SectionLosers, 1, 0}, 4)
	if b.Losers[0][0].Winner == nil || b.Losers[0][0].Winner.ID != 4 {
		t.Fatal("early losers decision was not recorded")
	}
	if cur := b.CurrentMatch(); cur == nil || cur.Coord() != (Coord{SectionWinners, 2, 0}) {
		t.Fatalf("current match should remain the winners final, got %+v", cur)
	}
}

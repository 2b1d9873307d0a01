// charabracket/brackets/advance.go
package brackets

import (
	"fmt"
	"time"
)

// Advance records a human decision for the match at the given coordinate
// and returns the resulting bracket. The receiver is never mutated; the
// returned value is a fresh snapshot. The match must exist, hold two
// contestants, be undecided, and winner must be one of the contestants,
// otherwise ErrInvalidAdvancement is returned and the caller should
// re-fetch the current match.
func (b *Bracket) Advance(at Coord, winner Entrant) (*Bracket, error) {
	m := b.MatchAt(at)
	if m == nil {
		return nil, fmt.Errorf("%w: no match at %s round %d index %d", ErrInvalidAdvancement, at.Section, at.Round, at.Index)
	}
	if m.Winner != nil {
		return nil, fmt.Errorf("%w: match at %s round %d index %d is already decided", ErrInvalidAdvancement, at.Section, at.Round, at.Index)
	}
	if m.Slot1 == nil || m.Slot2 == nil {
		return nil, fmt.Errorf("%w: match at %s round %d index %d does not have two contestants", ErrInvalidAdvancement, at.Section, at.Round, at.Index)
	}
	if m.slot(winner.ID) == nil {
		return nil, fmt.Errorf("%w: entrant %d is not a contestant at %s round %d index %d", ErrInvalidAdvancement, winner.ID, at.Section, at.Round, at.Index)
	}

	next := b.clone()
	now := time.Now()
	nm := next.MatchAt(at)
	nm.Winner = nm.slot(winner.ID)
	nm.DecidedAt = &now

	switch at.Section {
	case SectionWinners:
		next.settleWinnersMatch(nm, now)
	case SectionLosers:
		next.forwardLosersWinner(nm, now)
	case SectionGrandFinal:
		next.crown(nm.Winner)
	}
	next.recomputeCurrent()
	return next, nil
}

func (b *Bracket) crown(champion *Entrant) {
	b.Champion = champion
	b.Complete = true
}

// settleWinnersMatch moves a decided winners-bracket match's winner
// forward and, for double elimination, hands the loser to the drop-down
// router.
func (b *Bracket) settleWinnersMatch(m *Match, now time.Time) {
	loser := m.other(m.Winner.ID)

	if m.Round == b.WinnersRounds {
		if b.Format == FormatSingle {
			b.crown(m.Winner)
		} else {
			b.GrandFinal.Slot1 = m.Winner
		}
	} else {
		target := b.Winners[m.Round][m.Index/2]
		if m.Index%2 == 0 {
			target.Slot1 = m.Winner
		} else {
			target.Slot2 = m.Winner
		}
	}

	if b.Format == FormatDouble && loser != nil {
		b.dropLoser(m.Round, m.Index, loser, now)
	}

	// A losers bracket that can never field a grand finalist leaves the
	// grand final a bye for the winners-final winner.
	if b.Format == FormatDouble && m.Round == b.WinnersRounds && b.losersExhausted() {
		gf := b.GrandFinal
		gf.resolveBye(gf.Slot1, now)
		b.crown(gf.Winner)
	}
}

// dropLoser routes a winners-bracket loser into the losers bracket:
// round-1 losers land in losers round 1 at half their match index;
// losers from winners round R>1 land in the major round 2*(R-1) at the
// same index. A target beyond the last losers round means the bracket is
// too small to receive the drop, and it is discarded.
func (b *Bracket) dropLoser(round, index int, loser *Entrant, now time.Time) {
	target, ti := 1, index/2
	if round > 1 {
		target, ti = 2*(round-1), index
	}
	if target > b.LosersRounds {
		return
	}
	b.insertLoser(target, ti, loser, now)
}

// insertLoser places an arrival in the first empty slot of a losers
// cell. When the opposing slot can never be filled the arrival wins an
// immediate bye and cascades forward; a merely pending opponent leaves
// the cell waiting.
func (b *Bracket) insertLoser(round, index int, e *Entrant, now time.Time) {
	m := b.Losers[round-1][index]
	if m.Slot1 == nil {
		m.Slot1 = e
	} else if m.Slot2 == nil {
		m.Slot2 = e
	} else {
		return
	}
	if m.Slot1 != nil && m.Slot2 != nil {
		return
	}
	if b.losersLiveFeeds(round, index) == 1 {
		m.resolveBye(e, now)
		b.forwardLosersWinner(m, now)
	}
}

// forwardLosersWinner advances a decided losers-bracket match: odd
// rounds feed the same index of the next round, even rounds halve the
// index; the losers final feeds grand-final slot 2.
func (b *Bracket) forwardLosersWinner(m *Match, now time.Time) {
	if m.Round == b.LosersRounds {
		b.GrandFinal.Slot2 = m.Winner
		return
	}
	index := m.Index
	if m.Round%2 == 0 {
		index = m.Index / 2
	}
	b.insertLoser(m.Round+1, index, m.Winner, now)
}

// losersExhausted reports whether the losers bracket can still deliver a
// grand finalist. Only a two-entrant double-elimination bracket has no
// losers rounds at all.
func (b *Bracket) losersExhausted() bool {
	if b.LosersRounds == 0 {
		return true
	}
	return b.Losers[b.LosersRounds-1][0].Dead
}

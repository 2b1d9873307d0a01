// charabracket/brackets/topology.go
package brackets

import (
	"fmt"
	"math/rand"
	"time"
)

// New builds a freshly seeded bracket. Entrants are placed in list order
// unless shuffle is set, in which case the list is Fisher-Yates shuffled
// first. Entrant ids must be distinct. At least two entrants are
// required.
func New(entrants []Entrant, format Format, shuffle bool) (*Bracket, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unknown bracket format %q", format)
	}
	if len(entrants) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientEntrants, len(entrants))
	}

	order := make([]Entrant, len(entrants))
	copy(order, entrants)
	if shuffle {
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	b := scaffold(nextPowerOfTwo(len(order)), format)
	b.seed(order)
	b.resolveWinnersByes(time.Now())
	b.markDeadLosers()
	b.recomputeCurrent()
	return b, nil
}

func nextPowerOfTwo(n int) int {
	size := 2
	for size < n {
		size <<= 1
	}
	return size
}

// scaffold allocates every cell of an empty bracket of the given size.
// Winners round r holds size/2^r matches. The losers bracket (double
// elimination only) has (winnersRounds-1)*2 rounds: round 1 holds size/4
// matches, even "major" rounds repeat the previous round's size, odd
// "minor" rounds halve it.
func scaffold(size int, format Format) *Bracket {
	b := &Bracket{
		Format: format,
		Size:   size,
	}
	for n := size; n > 1; n /= 2 {
		b.WinnersRounds++
	}

	b.Winners = make([][]*Match, b.WinnersRounds)
	for r := 1; r <= b.WinnersRounds; r++ {
		b.Winners[r-1] = emptyRound(SectionWinners, r, size>>uint(r))
	}

	if format == FormatDouble {
		b.LosersRounds = (b.WinnersRounds - 1) * 2
		b.Losers = make([][]*Match, b.LosersRounds)
		width := size / 4
		for r := 1; r <= b.LosersRounds; r++ {
			if r > 1 && r%2 == 1 {
				width /= 2
			}
			b.Losers[r-1] = emptyRound(SectionLosers, r, width)
		}
		b.GrandFinal = &Match{Section: SectionGrandFinal, Round: 1, Index: 0}
	}
	return b
}

func emptyRound(section Section, round, width int) []*Match {
	matches := make([]*Match, width)
	for i := range matches {
		matches[i] = &Match{Section: section, Round: round, Index: i}
	}
	return matches
}

// seed streams entrants into round one in order: the first n-size/2
// matches take a pair each, the rest take a single occupant, so exactly
// size-n matches open as byes and none open empty.
func (b *Bracket) seed(order []Entrant) {
	pairs := len(order) - b.Size/2
	p := 0
	for i, m := range b.Winners[0] {
		if p >= len(order) {
			break
		}
		first := order[p]
		m.Slot1 = &first
		p++
		if i < pairs {
			second := order[p]
			m.Slot2 = &second
			p++
		}
	}
}

// resolveWinnersByes walks the winners bracket from round one forward,
// marking dead cells and auto-resolving byes. A cell resolves as a bye
// only when the opposing feeder can structurally never produce a
// contestant; a feeder that is merely undecided must never trigger it.
func (b *Bracket) resolveWinnersByes(now time.Time) {
	for _, m := range b.Winners[0] {
		switch {
		case m.Slot1 == nil && m.Slot2 == nil:
			m.Dead = true
		case m.Slot2 == nil:
			m.resolveBye(m.Slot1, now)
		case m.Slot1 == nil:
			m.resolveBye(m.Slot2, now)
		}
	}

	for r := 2; r <= b.WinnersRounds; r++ {
		for i, m := range b.Winners[r-1] {
			f1 := b.Winners[r-2][2*i]
			f2 := b.Winners[r-2][2*i+1]
			if f1.Bye && f1.Winner != nil {
				m.Slot1 = f1.Winner
			}
			if f2.Bye && f2.Winner != nil {
				m.Slot2 = f2.Winner
			}
			switch {
			case f1.Dead && f2.Dead:
				m.Dead = true
			case m.Slot1 != nil && m.Slot2 == nil && f2.Dead:
				m.resolveBye(m.Slot1, now)
			case m.Slot2 != nil && m.Slot1 == nil && f1.Dead:
				m.resolveBye(m.Slot2, now)
			}
		}
	}
}

func (m *Match) resolveBye(e *Entrant, now time.Time) {
	at := now
	m.Winner = e
	m.Bye = true
	m.DecidedAt = &at
}

// markDeadLosers flags losers-bracket cells none of whose sources can
// ever deliver a contestant. Winners cells that are dead or byes produce
// no loser, which is what starves a losers cell.
func (b *Bracket) markDeadLosers() {
	for r := 1; r <= b.LosersRounds; r++ {
		for i, m := range b.Losers[r-1] {
			m.Dead = b.losersLiveFeeds(r, i) == 0
		}
	}
}

// losersLiveFeeds counts the sources still able to deliver a contestant
// into losers cell (round, index). The layout is fixed: round 1 collects
// the losers of winners round 1 pairwise; even rounds pair the previous
// losers round's winner (same index) with the drop-down from winners
// round round/2+1; odd rounds consolidate the previous round pairwise.
func (b *Bracket) losersLiveFeeds(round, index int) int {
	n := 0
	switch {
	case round == 1:
		if b.winnersProducesLoser(1, 2*index) {
			n++
		}
		if b.winnersProducesLoser(1, 2*index+1) {
			n++
		}
	case round%2 == 0:
		if !b.Losers[round-2][index].Dead {
			n++
		}
		if b.winnersProducesLoser(round/2+1, index) {
			n++
		}
	default:
		if !b.Losers[round-2][2*index].Dead {
			n++
		}
		if !b.Losers[round-2][2*index+1].Dead {
			n++
		}
	}
	return n
}

func (b *Bracket) winnersProducesLoser(round, index int) bool {
	m := matchIn(b.Winners, round, index)
	if m == nil {
		return false
	}
	return !m.Dead && !m.Bye
}

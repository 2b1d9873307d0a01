// charabracket/brackets/serialize.go
package brackets

import (
	"fmt"
	"sort"
	"time"
)

// Record is the flat persisted form of one bracket cell.
type Record struct {
	Section     Section    `json:"section"`
	Round       int        `json:"round"`
	Index       int        `json:"index"`
	Entrant1ID  *int       `json:"entrant1_id"`
	Entrant2ID  *int       `json:"entrant2_id"`
	WinnerID    *int       `json:"winner_id"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Records flattens every cell, dead and empty ones included, in scan
// order. The output carries everything Rehydrate needs except entrant
// display data.
func (b *Bracket) Records() []Record {
	records := make([]Record, 0, b.cellCount())
	b.eachMatch(func(m *Match) {
		records = append(records, Record{
			Section:     m.Section,
			Round:       m.Round,
			Index:       m.Index,
			Entrant1ID:  entrantID(m.Slot1),
			Entrant2ID:  entrantID(m.Slot2),
			WinnerID:    entrantID(m.Winner),
			CompletedAt: m.DecidedAt,
		})
	})
	return records
}

func (b *Bracket) cellCount() int {
	n := 0
	b.eachMatch(func(*Match) { n++ })
	return n
}

func entrantID(e *Entrant) *int {
	if e == nil {
		return nil
	}
	id := e.ID
	return &id
}

// Rehydrate rebuilds a bracket from persisted records and a lookup of
// entrant identities. Derived state (byes, dead cells, champion,
// completion, current match) is recomputed rather than trusted. A
// record id missing from the lookup empties that slot instead of
// aborting; the partially recovered bracket is still returned, alongside
// an error wrapping ErrRehydrationMismatch naming the dropped ids.
func Rehydrate(records []Record, lookup map[int]Entrant, format Format) (*Bracket, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: unknown format %q", ErrRehydrationMismatch, format)
	}
	winnersRounds := 0
	for _, rec := range records {
		if rec.Section == SectionWinners && rec.Round > winnersRounds {
			winnersRounds = rec.Round
		}
	}
	if winnersRounds == 0 {
		return nil, fmt.Errorf("%w: no winners-bracket records", ErrRehydrationMismatch)
	}

	b := scaffold(1<<uint(winnersRounds), format)
	missing := make(map[int]struct{})
	for _, rec := range records {
		m := b.MatchAt(Coord{Section: rec.Section, Round: rec.Round, Index: rec.Index})
		if m == nil {
			continue
		}
		m.Slot1 = resolveEntrant(rec.Entrant1ID, lookup, missing)
		m.Slot2 = resolveEntrant(rec.Entrant2ID, lookup, missing)
		m.Winner = resolveEntrant(rec.WinnerID, lookup, missing)
		m.DecidedAt = rec.CompletedAt
	}

	b.inferDerived()

	if len(missing) > 0 {
		ids := make([]int, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		return b, fmt.Errorf("%w: unknown entrant ids %v", ErrRehydrationMismatch, ids)
	}
	return b, nil
}

func resolveEntrant(id *int, lookup map[int]Entrant, missing map[int]struct{}) *Entrant {
	if id == nil {
		return nil
	}
	e, ok := lookup[*id]
	if !ok {
		missing[*id] = struct{}{}
		return nil
	}
	return &e
}

// inferDerived recomputes everything construction and advancement would
// have derived: bye flags (exactly one occupant and a winner), winners
// dead propagation from round one forward, losers dead cells, champion,
// completion and the current match.
func (b *Bracket) inferDerived() {
	b.eachMatch(func(m *Match) {
		occupants := 0
		if m.Slot1 != nil {
			occupants++
		}
		if m.Slot2 != nil {
			occupants++
		}
		m.Bye = occupants == 1 && m.Winner != nil
	})

	for _, m := range b.Winners[0] {
		m.Dead = m.Slot1 == nil && m.Slot2 == nil && m.Winner == nil
	}
	for r := 2; r <= b.WinnersRounds; r++ {
		for i, m := range b.Winners[r-1] {
			m.Dead = b.Winners[r-2][2*i].Dead && b.Winners[r-2][2*i+1].Dead
		}
	}
	b.markDeadLosers()

	terminal := b.Winners[b.WinnersRounds-1][0]
	if b.Format == FormatDouble {
		terminal = b.GrandFinal
	}
	b.Champion = terminal.Winner
	b.Complete = b.Champion != nil
	b.recomputeCurrent()
}

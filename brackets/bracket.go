// charabracket/brackets/bracket.go
package brackets

import (
	"errors"
	"time"
)

var (
	ErrInsufficientEntrants = errors.New("bracket requires at least two entrants")
	ErrInvalidAdvancement   = errors.New("invalid advancement")
	ErrRehydrationMismatch  = errors.New("rehydration mismatch")
	ErrNotComplete          = errors.New("bracket is not complete")
)

type Format string

const (
	FormatSingle Format = "single"
	FormatDouble Format = "double"
)

func (f Format) Valid() bool {
	return f == FormatSingle || f == FormatDouble
}

type Section string

const (
	SectionWinners    Section = "winners"
	SectionLosers     Section = "losers"
	SectionGrandFinal Section = "grand_final"
)

// Entrant is a bracket contestant. The engine never mutates one and
// compares entrants by ID only; Name is carried for display.
type Entrant struct {
	ID   int
	Name string
}

// Coord addresses a single match cell. Rounds are 1-based, indexes
// 0-based. The grand final is always {SectionGrandFinal, 1, 0}.
type Coord struct {
	Section Section `json:"section"`
	Round   int     `json:"round"`
	Index   int     `json:"index"`
}

// Match is one bracket cell. Winner is set either by a human decision
// (both slots filled) or by a bye, in which case Bye is true. Dead marks
// a cell that can structurally never receive two contestants.
type Match struct {
	Section   Section
	Round     int
	Index     int
	Slot1     *Entrant
	Slot2     *Entrant
	Winner    *Entrant
	Bye       bool
	Dead      bool
	DecidedAt *time.Time
}

func (m *Match) Coord() Coord {
	return Coord{Section: m.Section, Round: m.Round, Index: m.Index}
}

// Decidable reports whether the match is waiting on a human decision.
func (m *Match) Decidable() bool {
	return m.Slot1 != nil && m.Slot2 != nil && m.Winner == nil
}

// slot returns the slot occupied by the entrant with the given id.
func (m *Match) slot(id int) *Entrant {
	if m.Slot1 != nil && m.Slot1.ID == id {
		return m.Slot1
	}
	if m.Slot2 != nil && m.Slot2.ID == id {
		return m.Slot2
	}
	return nil
}

// other returns the slot occupant opposite the entrant with the given id.
func (m *Match) other(id int) *Entrant {
	if m.Slot1 != nil && m.Slot1.ID == id {
		return m.Slot2
	}
	if m.Slot2 != nil && m.Slot2.ID == id {
		return m.Slot1
	}
	return nil
}

// Bracket is a full tournament state. Values returned by New, Advance and
// Rehydrate are snapshots: Advance copies before it writes, so previously
// returned states stay valid and can be kept for undo.
type Bracket struct {
	Format        Format
	Size          int
	WinnersRounds int
	LosersRounds  int
	Winners       [][]*Match
	Losers        [][]*Match
	GrandFinal    *Match
	Current       *Coord
	Complete      bool
	Champion      *Entrant
}

// MatchAt resolves a coordinate, returning nil when it addresses nothing.
func (b *Bracket) MatchAt(at Coord) *Match {
	switch at.Section {
	case SectionWinners:
		return matchIn(b.Winners, at.Round, at.Index)
	case SectionLosers:
		return matchIn(b.Losers, at.Round, at.Index)
	case SectionGrandFinal:
		if at.Round == 1 && at.Index == 0 {
			return b.GrandFinal
		}
	}
	return nil
}

func matchIn(rounds [][]*Match, round, index int) *Match {
	if round < 1 || round > len(rounds) {
		return nil
	}
	if index < 0 || index >= len(rounds[round-1]) {
		return nil
	}
	return rounds[round-1][index]
}

// CurrentMatch returns the single match awaiting a decision, or nil once
// the bracket is complete.
func (b *Bracket) CurrentMatch() *Match {
	if b.Current == nil {
		return nil
	}
	return b.MatchAt(*b.Current)
}

// EntrantIDs returns the distinct ids of every entrant placed anywhere in
// the bracket, in first-seen scan order.
func (b *Bracket) EntrantIDs() []int {
	seen := make(map[int]struct{})
	var ids []int
	b.eachMatch(func(m *Match) {
		for _, e := range []*Entrant{m.Slot1, m.Slot2} {
			if e == nil {
				continue
			}
			if _, ok := seen[e.ID]; !ok {
				seen[e.ID] = struct{}{}
				ids = append(ids, e.ID)
			}
		}
	})
	return ids
}

// eachMatch visits every cell in scan order: winners bracket round by
// round, then losers bracket, then the grand final.
func (b *Bracket) eachMatch(fn func(*Match)) {
	for _, round := range b.Winners {
		for _, m := range round {
			fn(m)
		}
	}
	for _, round := range b.Losers {
		for _, m := range round {
			fn(m)
		}
	}
	if b.GrandFinal != nil {
		fn(b.GrandFinal)
	}
}

// recomputeCurrent rescans for the first live undecided cell. Dead cells
// never become current; a complete bracket has no current match.
func (b *Bracket) recomputeCurrent() {
	b.Current = nil
	if b.Complete {
		return
	}
	found := false
	b.eachMatch(func(m *Match) {
		if found || m.Dead || m.Winner != nil {
			return
		}
		at := m.Coord()
		b.Current = &at
		found = true
	})
}

// clone copies the bracket structure. Entrant values are immutable and
// shared between snapshots.
func (b *Bracket) clone() *Bracket {
	c := &Bracket{
		Format:        b.Format,
		Size:          b.Size,
		WinnersRounds: b.WinnersRounds,
		LosersRounds:  b.LosersRounds,
		Complete:      b.Complete,
		Champion:      b.Champion,
	}
	c.Winners = cloneRounds(b.Winners)
	c.Losers = cloneRounds(b.Losers)
	if b.GrandFinal != nil {
		gf := *b.GrandFinal
		c.GrandFinal = &gf
	}
	if b.Current != nil {
		at := *b.Current
		c.Current = &at
	}
	return c
}

func cloneRounds(rounds [][]*Match) [][]*Match {
	if rounds == nil {
		return nil
	}
	out := make([][]*Match, len(rounds))
	for r, round := range rounds {
		out[r] = make([]*Match, len(round))
		for i, m := range round {
			mc := *m
			out[r][i] = &mc
		}
	}
	return out
}

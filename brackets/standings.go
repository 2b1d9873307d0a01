// charabracket/brackets/standings.go
package brackets

// Standings derives the final ranking of a complete bracket, champion
// first. Single elimination ranks champion, runner-up, then the
// semifinal losers (tied, listed by match index; byes contribute none).
// Double elimination ranks champion and runner-up only. An incomplete
// bracket returns ErrNotComplete.
func (b *Bracket) Standings() ([]Entrant, error) {
	if !b.Complete || b.Champion == nil {
		return nil, ErrNotComplete
	}

	switch b.Format {
	case FormatDouble:
		gf := b.GrandFinal
		out := []Entrant{*b.Champion}
		runnerUp := gf.other(b.Champion.ID)
		if runnerUp == nil {
			// Grand-final bye: the only other finalist ever seen is the
			// winners-final loser.
			final := b.Winners[b.WinnersRounds-1][0]
			if final.Winner != nil {
				runnerUp = final.other(final.Winner.ID)
			}
		}
		if runnerUp != nil {
			out = append(out, *runnerUp)
		}
		return out, nil

	default:
		final := b.Winners[b.WinnersRounds-1][0]
		out := []Entrant{*b.Champion}
		if runnerUp := final.other(b.Champion.ID); runnerUp != nil {
			out = append(out, *runnerUp)
		}
		if b.WinnersRounds >= 2 {
			for _, m := range b.Winners[b.WinnersRounds-2] {
				if m.Dead || m.Bye || m.Winner == nil {
					continue
				}
				if loser := m.other(m.Winner.ID); loser != nil {
					out = append(out, *loser)
				}
			}
		}
		return out, nil
	}
}

// Package progression moves results through a tournament's bracket. It
// works on a Snapshot of one tournament loaded inside a transaction and
// records which documents changed so the caller can write them back.
package progression

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

type Snapshot struct {
	Tournament *bracket.Tournament

	matches map[string]*bracket.Match
	dirty   map[string]bool
	deleted map[string]bool

	tournamentDirty bool
}

func NewSnapshot(t *bracket.Tournament, matches []bracket.Match) *Snapshot {
	s := &Snapshot{
		Tournament: t,
		matches:    make(map[string]*bracket.Match, len(matches)),
		dirty:      map[string]bool{},
		deleted:    map[string]bool{},
	}
	for i := range matches {
		m := matches[i]
		s.matches[m.ID] = &m
	}
	return s
}

func (s *Snapshot) Match(id string) *bracket.Match {
	return s.matches[id]
}

var stageOrder = map[bracket.Stage]int{
	bracket.StageGroup:      0,
	bracket.StageSingle:     1,
	bracket.StageUpper:      2,
	bracket.StageLower:      3,
	bracket.StagePlayoff:    4,
	bracket.StageGrandFinal: 5,
}

func matchIndex(m *bracket.Match) int {
	_, index, ok := bracket.ParseMatchID(m.ID, bracket.PrefixFor(m.Stage))
	if !ok {
		return 0
	}
	return index
}

func compareMatches(a, b *bracket.Match) int {
	if c := cmp.Compare(stageOrder[a.Stage], stageOrder[b.Stage]); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Round, b.Round); c != 0 {
		return c
	}
	if c := cmp.Compare(matchIndex(a), matchIndex(b)); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Matches returns every match in bracket order.
func (s *Snapshot) Matches() []*bracket.Match {
	out := make([]*bracket.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	slices.SortFunc(out, compareMatches)
	return out
}

func (s *Snapshot) StageMatches(stage bracket.Stage) []*bracket.Match {
	var out []*bracket.Match
	for _, m := range s.Matches() {
		if m.Stage == stage {
			out = append(out, m)
		}
	}
	return out
}

// roundMatches lists the matches of one stage round.
func (s *Snapshot) roundMatches(stage bracket.Stage, round int) []*bracket.Match {
	var out []*bracket.Match
	for _, m := range s.StageMatches(stage) {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// Put stores m, replacing any match with the same id.
func (s *Snapshot) Put(m bracket.Match) *bracket.Match {
	if m.TournamentID == uuid.Nil && s.Tournament != nil {
		m.TournamentID = s.Tournament.ID
	}
	if m.BestOf == 0 && s.Tournament != nil {
		m.BestOf = max(1, s.Tournament.BestOf)
	}
	s.matches[m.ID] = &m
	delete(s.deleted, m.ID)
	s.dirty[m.ID] = true
	return &m
}

// Touch marks m as changed.
func (s *Snapshot) Touch(m *bracket.Match) {
	s.dirty[m.ID] = true
}

func (s *Snapshot) Delete(id string) {
	delete(s.matches, id)
	delete(s.dirty, id)
	s.deleted[id] = true
}

func (s *Snapshot) TouchTournament() {
	s.tournamentDirty = true
}

// Dirty lists changed matches in bracket order.
func (s *Snapshot) Dirty() []bracket.Match {
	var out []bracket.Match
	for _, m := range s.Matches() {
		if s.dirty[m.ID] {
			out = append(out, *m)
		}
	}
	return out
}

func (s *Snapshot) Deleted() []string {
	out := make([]string, 0, len(s.deleted))
	for id := range s.deleted {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *Snapshot) TournamentDirty() bool {
	return s.tournamentDirty
}

// Changed reports whether anything needs writing.
func (s *Snapshot) Changed() bool {
	return s.tournamentDirty || len(s.dirty) > 0 || len(s.deleted) > 0
}

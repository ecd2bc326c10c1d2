package bracket

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// MemberSnapshot is a roster member frozen at registration time.
type MemberSnapshot struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Elo       int    `json:"elo"`
}

// TeamSnapshot is the copy of a participant embedded into matches and
// tournament results. Later profile edits never reach it.
type TeamSnapshot struct {
	TeamID     string           `json:"teamId"`
	Name       string           `json:"name"`
	AvatarURL  string           `json:"avatarUrl,omitempty"`
	CaptainUID string           `json:"captainUid"`
	AvgElo     int              `json:"avgElo"`
	Members    []MemberSnapshot `json:"members,omitempty"`
}

func (s *TeamSnapshot) Clone() *TeamSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Members = slices.Clone(s.Members)
	return &c
}

// ID returns the team id, or "" for an empty slot.
func (s *TeamSnapshot) ID() string {
	if s == nil {
		return ""
	}
	return s.TeamID
}

type Registration struct {
	ID             uuid.UUID        `json:"id"`
	TournamentID   uuid.UUID        `json:"tournamentId"`
	TeamID         string           `json:"teamId"`
	Name           string           `json:"name"`
	AvatarURL      string           `json:"avatarUrl,omitempty"`
	CaptainUID     string           `json:"captainUid"`
	MemberUIDs     []string         `json:"memberUids"`
	AvgEloSnapshot int              `json:"avgEloSnapshot"`
	Members        []MemberSnapshot `json:"members"`
	CreatedAt      time.Time        `json:"createdAt"`
}

func (r Registration) Snapshot() *TeamSnapshot {
	return &TeamSnapshot{
		TeamID:     r.TeamID,
		Name:       r.Name,
		AvatarURL:  r.AvatarURL,
		CaptainUID: r.CaptainUID,
		AvgElo:     r.AvgEloSnapshot,
		Members:    slices.Clone(r.Members),
	}
}

// AverageElo is the rounded mean elo of the given members, 0 for none.
func AverageElo(members []MemberSnapshot) int {
	if len(members) == 0 {
		return 0
	}
	total := 0
	for _, m := range members {
		total += m.Elo
	}
	return (total + len(members)/2) / len(members)
}

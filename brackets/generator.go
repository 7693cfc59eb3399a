package brackets

import (
	"errors"
	"math/rand"

	"github.com/aldiyarbek/tournament-bot/models"
)

// groupCapacity задаёт целевой размер группы; количество групп = ceil(n/4).
const groupCapacity = 4

var ErrInsufficientTeams = errors.New("not enough approved teams to build a bracket (min 2 required)")

// Assignment places one approved application into a group slot.
// Positions are dense and start at 1 within each group.
type Assignment struct {
	ApplicationID int `json:"application_id"`
	Group         int `json:"group"`
	Position      int `json:"position"`
}

type GroupGenerator struct {
	// shuffle is swappable in tests to pin the permutation.
	shuffle func(n int, swap func(i, j int))
}

func NewGroupGenerator() *GroupGenerator {
	return &GroupGenerator{shuffle: rand.Shuffle}
}

// GroupCount returns ceil(n/groupCapacity).
func GroupCount(n int) int {
	return (n + groupCapacity - 1) / groupCapacity
}

// Generate draws a uniformly random permutation of the approved teams and
// deals them round-robin into GroupCount(n) groups: the team at permuted
// index i lands in group (i mod groups)+1 at position (i div groups)+1.
// Group sizes differ by at most one. Every call reshuffles from scratch; the
// result fully replaces any previous partition.
func (g *GroupGenerator) Generate(teams []*models.Application) ([]Assignment, error) {
	n := len(teams)
	if n < 2 {
		return nil, ErrInsufficientTeams
	}

	order := make([]*models.Application, n)
	copy(order, teams)
	g.shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	groups := GroupCount(n)
	assignments := make([]Assignment, n)
	for i, team := range order {
		assignments[i] = Assignment{
			ApplicationID: team.ID,
			Group:         i%groups + 1,
			Position:      i/groups + 1,
		}
	}
	return assignments, nil
}

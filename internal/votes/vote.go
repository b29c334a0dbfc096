package votes

import "github.com/emilythestrangee/social-media/backend/internal/models"

// Value is a vote direction as stored in the votes table.
type Value int

const (
	Like    Value = 1
	Dislike Value = -1
)

func (v Value) Valid() bool {
	return v == Like || v == Dislike
}

// Action is what Apply did to the stored vote row.
type Action int

const (
	ActionInsert Action = iota + 1
	ActionUpdate
	ActionRetract
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "recorded"
	case ActionUpdate:
		return "updated"
	case ActionRetract:
		return "removed"
	default:
		return "unknown"
	}
}

// Decide maps the user's existing vote (nil when absent) and the desired value
// to the write that must happen. Voting the same way twice retracts the vote.
func Decide(existing *models.Vote, desired Value) Action {
	switch {
	case existing == nil:
		return ActionInsert
	case Value(existing.Value) == desired:
		return ActionRetract
	default:
		return ActionUpdate
	}
}

// Tally is the derived view of a post's votes.
type Tally struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
	// UserVote is the viewer's own value, nil when they have not voted.
	UserVote *int `json:"user_vote,omitempty"`
}

// Count derives likes, dislikes and the viewer's vote from a post's vote rows.
// An empty viewerID never matches a row.
func Count(rows []models.Vote, viewerID string) Tally {
	var t Tally
	for _, v := range rows {
		switch Value(v.Value) {
		case Like:
			t.Likes++
		case Dislike:
			t.Dislikes++
		}
		if viewerID != "" && v.UserID == viewerID {
			value := v.Value
			t.UserVote = &value
		}
	}
	return t
}

package account

import "slices"

// Record is the persisted per-user state. JSON names match the blobs written by the web client.
type Record struct {
	Identifier          string   `json:"email"`
	Secret              string   `json:"password"`
	DisplayName         string   `json:"name"`
	Organization        string   `json:"school"`
	Points              int      `json:"ecoPoints"`
	CompletedChallenges []string `json:"completedChallenges"`
	EarnedBadges        []string `json:"earnedBadges"`
	AvatarSeed          string   `json:"avatarSeed"`
}

// HasCompleted reports whether challengeID is already recorded.
func (r Record) HasCompleted(challengeID string) bool {
	return slices.Contains(r.CompletedChallenges, challengeID)
}

// HasBadge reports whether badgeID is already earned.
func (r Record) HasBadge(badgeID string) bool {
	return slices.Contains(r.EarnedBadges, badgeID)
}

func (r Record) clone() Record {
	out := r
	out.CompletedChallenges = append(make([]string, 0, len(r.CompletedChallenges)), r.CompletedChallenges...)
	out.EarnedBadges = append(make([]string, 0, len(r.EarnedBadges)), r.EarnedBadges...)
	return out
}

// normalize makes nil sets empty so a serialize/reload round trip is exact.
func (r *Record) normalize() {
	if r.CompletedChallenges == nil {
		r.CompletedChallenges = []string{}
	}
	if r.EarnedBadges == nil {
		r.EarnedBadges = []string{}
	}
}

// Profile is the outward view of a Record. It never carries the secret.
type Profile struct {
	Email               string   `json:"email"`
	Name                string   `json:"name"`
	School              string   `json:"school"`
	EcoPoints           int      `json:"ecoPoints"`
	CompletedChallenges []string `json:"completedChallenges"`
	EarnedBadges        []string `json:"earnedBadges"`
	AvatarSeed          string   `json:"avatarSeed"`
	AvatarURL           string   `json:"avatarUrl"`
}

// Profile builds the outward view.
func (r Record) Profile() Profile {
	c := r.clone()
	return Profile{
		Email:               c.Identifier,
		Name:                c.DisplayName,
		School:              c.Organization,
		EcoPoints:           c.Points,
		CompletedChallenges: c.CompletedChallenges,
		EarnedBadges:        c.EarnedBadges,
		AvatarSeed:          c.AvatarSeed,
		AvatarURL:           AvatarURL(c.AvatarSeed),
	}
}

// Registration carries the signup inputs.
type Registration struct {
	DisplayName  string
	Organization string
	Identifier   string
	Secret       string
}

// Completion is the outcome of RecordChallengeCompletion.
type Completion struct {
	Record           Record   `json:"-"`
	ChallengeID      string   `json:"challengeId"`
	AlreadyCompleted bool     `json:"alreadyCompleted"`
	PointsAwarded    int      `json:"pointsAwarded"`
	NewBadges        []string `json:"newBadges"`
}

// Credit is the outcome of a points credit. NewBadges stays empty unless the store
// evaluates badge rules on credit.
type Credit struct {
	Record    Record   `json:"-"`
	NewBadges []string `json:"newBadges"`
}

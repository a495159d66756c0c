package account

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const avatarBaseURL = "https://api.dicebear.com/8.x/bottts-neutral/svg"

// AvatarURL returns the generated avatar image for seed.
func AvatarURL(seed string) string {
	return avatarBaseURL + "?" + url.Values{"seed": {seed}}.Encode()
}

// SuggestAvatarSeeds returns current followed by n fresh random seeds.
func SuggestAvatarSeeds(current string, n int) []string {
	if n < 0 {
		n = 0
	}
	seeds := make([]string, 0, n+1)
	seeds = append(seeds, current)
	for len(seeds) < n+1 {
		seeds = append(seeds, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	return seeds
}

package httpapi

import (
	"context"
	"net/http"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/leaderboard"
)

const leaderboardWindow = 5

func listChallenges(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"challenges": deps.Catalog.Challenges()})
	}
}

func listBadges(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"badges": deps.Catalog.Badges()})
	}
}

func listTopics(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"topics": deps.Catalog.Topics()})
	}
}

func getLeaderboard(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		records, err := deps.Accounts.List(ctx)
		if err != nil {
			writeServiceError(w, r, deps.Logger, "failed to load leaderboard", err, "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leaderboard": standings(records)})
	}
}

// standings ranks every local account together with the seed players.
func standings(records []account.Record) []leaderboard.Entry {
	players := make([]leaderboard.Entry, 0, len(records))
	for _, rec := range records {
		players = append(players, leaderboard.Entry{
			ID:        rec.Identifier,
			Name:      rec.DisplayName,
			School:    rec.Organization,
			EcoPoints: rec.Points,
		})
	}
	return leaderboard.Rank(leaderboard.Combine(leaderboard.Seed(), players))
}

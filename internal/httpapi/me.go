package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/catalog"
	"github.com/ecochamps/ecochamps-service/internal/leaderboard"
	"github.com/ecochamps/ecochamps-service/internal/platform/apierror"
)

const (
	nextChallengeCount = 3
	avatarSuggestions  = 5
)

type avatarRequest struct {
	Seed string `json:"seed" validate:"required,max=64"`
}

type avatarOption struct {
	Seed string `json:"seed"`
	URL  string `json:"url"`
}

type dashboardResponse struct {
	Profile        account.Profile     `json:"profile"`
	Badges         []catalog.Badge     `json:"badges"`
	NextChallenges []catalog.Challenge `json:"nextChallenges"`
	Leaderboard    []leaderboard.Entry `json:"leaderboard"`
}

type completionResponse struct {
	account.Completion
	Profile account.Profile `json:"profile"`
}

func getMe(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		rec, err := deps.Accounts.Get(ctx, uid)
		if err != nil {
			writeServiceError(w, r, deps.Logger, "failed to load profile", err, uid)
			return
		}
		writeJSON(w, http.StatusOK, rec.Profile())
	}
}

func updateAvatar(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)

		var body avatarRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeDecodeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		rec, err := deps.Accounts.UpdateAvatarSeed(ctx, uid, body.Seed)
		if err != nil {
			writeServiceError(w, r, deps.Logger, "failed to update avatar", err, uid)
			return
		}
		writeJSON(w, http.StatusOK, rec.Profile())
	}
}

func suggestAvatars(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, _ := deps.Accounts.Active()

		seeds := account.SuggestAvatarSeeds(rec.AvatarSeed, avatarSuggestions)
		options := make([]avatarOption, 0, len(seeds))
		for _, seed := range seeds {
			options = append(options, avatarOption{Seed: seed, URL: account.AvatarURL(seed)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"current": rec.AvatarSeed, "options": options})
	}
}

func getDashboard(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		var (
			rec     account.Record
			records []account.Record
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			got, err := deps.Accounts.Get(gctx, uid)
			rec = got
			return err
		})
		g.Go(func() error {
			all, err := deps.Accounts.List(gctx)
			records = all
			return err
		})
		if err := g.Wait(); err != nil {
			writeServiceError(w, r, deps.Logger, "failed to load dashboard", err, uid)
			return
		}

		earned := make([]catalog.Badge, 0, len(rec.EarnedBadges))
		for _, b := range deps.Catalog.Badges() {
			if rec.HasBadge(b.ID) {
				earned = append(earned, b)
			}
		}
		next := make([]catalog.Challenge, 0, nextChallengeCount)
		for _, ch := range deps.Catalog.Challenges() {
			if len(next) == nextChallengeCount {
				break
			}
			if !rec.HasCompleted(ch.ID) {
				next = append(next, ch)
			}
		}

		writeJSON(w, http.StatusOK, dashboardResponse{
			Profile:        rec.Profile(),
			Badges:         earned,
			NextChallenges: next,
			Leaderboard:    leaderboard.Window(standings(records), rec.Identifier, leaderboardWindow),
		})
	}
}

func completeChallenge(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		challengeID := chi.URLParam(r, "id")
		if strings.TrimSpace(challengeID) == "" {
			writeError(w, r, http.StatusBadRequest, apierror.CodeBadRequest, "missing challenge id")
			return
		}
		challenge, ok := deps.Catalog.Challenge(challengeID)
		if !ok {
			writeError(w, r, http.StatusNotFound, apierror.CodeNotFound, "challenge not found")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		result, err := deps.Accounts.RecordChallengeCompletion(ctx, uid, challenge.ID, challenge.Points)
		countAccountEvent(deps.Metrics, "challenge_completion", err)
		if err != nil {
			writeServiceError(w, r, deps.Logger, "failed to complete challenge", err, uid)
			return
		}
		if deps.Metrics != nil {
			deps.Metrics.PointsAwarded.WithLabelValues("challenge").Add(float64(result.PointsAwarded))
			for _, badge := range result.NewBadges {
				deps.Metrics.BadgesGranted.WithLabelValues(badge).Inc()
			}
		}
		writeJSON(w, http.StatusOK, completionResponse{Completion: result, Profile: result.Record.Profile()})
	}
}

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/catalog"
	"github.com/ecochamps/ecochamps-service/internal/learn"
	"github.com/ecochamps/ecochamps-service/internal/platform/apierror"
	"github.com/ecochamps/ecochamps-service/internal/platform/auth"
	"github.com/ecochamps/ecochamps-service/internal/platform/metrics"
)

const (
	serviceTimeout = 8 * time.Second
	lessonTimeout  = 45 * time.Second
)

// Accounts is the record store surface the handlers use.
type Accounts interface {
	Register(ctx context.Context, in account.Registration) (account.Record, error)
	Authenticate(ctx context.Context, identifier, secret string) (account.Record, error)
	EndSession(ctx context.Context) error
	RecordChallengeCompletion(ctx context.Context, identifier, challengeID string, points int) (account.Completion, error)
	UpdateAvatarSeed(ctx context.Context, identifier, seed string) (account.Record, error)
	Active() (account.Record, bool)
	Get(ctx context.Context, identifier string) (account.Record, error)
	List(ctx context.Context) ([]account.Record, error)
}

// Lessons is the learn flow surface the handlers use.
type Lessons interface {
	StartLesson(ctx context.Context, identifier, topicID string) (learn.StartedLesson, error)
	Submit(ctx context.Context, identifier, lessonID string, answers []string) (learn.Result, error)
}

// Dependencies carries everything the routes need.
type Dependencies struct {
	Accounts Accounts
	Catalog  *catalog.Catalog
	Lessons  Lessons
	Tokens   auth.TokenService
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// RegisterRoutes registers all EcoChamps routes.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if deps.Metrics != nil {
			r.Use(deps.Metrics.Middleware)
		}

		r.Get("/v1/challenges", listChallenges(deps))
		r.Get("/v1/badges", listBadges(deps))
		r.Get("/v1/topics", listTopics(deps))
		r.Get("/v1/leaderboard", getLeaderboard(deps))

		r.Post("/v1/auth/signup", signup(deps))
		r.Post("/v1/auth/login", login(deps))
		r.Post("/v1/auth/logout", logout(deps))
		r.Get("/v1/session", getSession(deps))

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(deps.Tokens))
			r.Use(requireActiveSession(deps.Accounts))

			r.Get("/v1/me", getMe(deps))
			r.Patch("/v1/me/avatar", updateAvatar(deps))
			r.Get("/v1/me/avatars", suggestAvatars(deps))
			r.Get("/v1/dashboard", getDashboard(deps))
			r.Post("/v1/challenges/{id}/complete", completeChallenge(deps))
			r.Post("/v1/learn/topics/{id}/lessons", startLesson(deps))
			r.Post("/v1/learn/lessons/{id}/submit", submitLesson(deps))
		})
	})
}

// requireActiveSession admits only the caller whose identifier is the store's active session.
func requireActiveSession(accounts Accounts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user.UserID == "" {
				writeError(w, r, http.StatusUnauthorized, apierror.CodeUnauthorized, "missing user ID")
				return
			}
			active, ok := accounts.Active()
			if !ok || active.Identifier != user.UserID {
				writeError(w, r, http.StatusUnauthorized, apierror.CodeUnauthorized, "session is not active, please log in")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userID(r *http.Request) string {
	user, _ := auth.UserFromContext(r.Context())
	return user.UserID
}

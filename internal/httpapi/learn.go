package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/learn"
	"github.com/ecochamps/ecochamps-service/internal/platform/metrics"
)

type submitRequest struct {
	Answers []string `json:"answers" validate:"required,max=20,dive,max=500"`
}

type submitResponse struct {
	learn.Result
	Profile account.Profile `json:"profile"`
}

func startLesson(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		topicID := chi.URLParam(r, "id")

		ctx, cancel := context.WithTimeout(r.Context(), lessonTimeout)
		defer cancel()

		lesson, err := deps.Lessons.StartLesson(ctx, uid, topicID)
		if deps.Metrics != nil {
			label := topicID
			if _, ok := deps.Catalog.Topic(topicID); !ok {
				label = "unknown"
			}
			deps.Metrics.LessonsStarted.WithLabelValues(label, metrics.Outcome(err)).Inc()
		}
		if err != nil {
			writeServiceError(w, r, deps.Logger, "failed to start lesson", err, uid)
			return
		}
		writeJSON(w, http.StatusCreated, lesson)
	}
}

func submitLesson(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		lessonID := chi.URLParam(r, "id")

		var body submitRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeDecodeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		result, err := deps.Lessons.Submit(ctx, uid, lessonID, body.Answers)
		if err != nil {
			writeServiceError(w, r, deps.Logger, "failed to submit lesson", err, uid)
			return
		}
		if deps.Metrics != nil {
			deps.Metrics.PointsAwarded.WithLabelValues("quiz").Add(float64(result.PointsAwarded))
			for _, badge := range result.NewBadges {
				deps.Metrics.BadgesGranted.WithLabelValues(badge).Inc()
			}
		}
		writeJSON(w, http.StatusOK, submitResponse{Result: result, Profile: result.Record.Profile()})
	}
}

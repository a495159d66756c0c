package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/learn"
	"github.com/ecochamps/ecochamps-service/internal/platform/apierror"
	"github.com/ecochamps/ecochamps-service/internal/platform/logging"
)

const maxBodyBytes = 64 * 1024

var (
	errInvalidPayload = errors.New("invalid request body")

	payloadValidator = newPayloadValidator()
)

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads one JSON object into dst and runs its validate tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return errInvalidPayload
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errInvalidPayload
	}
	return payloadValidator.Struct(dst)
}

// writeDecodeError answers a request whose body failed decodeJSON.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		maxErr    *http.MaxBytesError
		fieldErrs validator.ValidationErrors
	)
	switch {
	case errors.As(err, &maxErr):
		writeError(w, r, http.StatusRequestEntityTooLarge, apierror.CodeBadRequest, "payload too large")
	case errors.As(err, &fieldErrs):
		writeError(w, r, http.StatusBadRequest, apierror.CodeBadRequest, describeValidation(fieldErrs))
	default:
		writeError(w, r, http.StatusBadRequest, apierror.CodeBadRequest, errInvalidPayload.Error())
	}
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be an email address", fe.Field()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s long", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}

// writeServiceError maps a domain error to the response envelope and logs server-side failures.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string, err error, userID string) {
	status, code, text := classify(err)
	if status >= http.StatusInternalServerError {
		logRequestError(r.Context(), logger, message, err, userID)
		if text == "" {
			text = message
		}
	}
	writeError(w, r, status, code, text)
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, account.ErrDuplicateAccount):
		return http.StatusConflict, apierror.CodeConflict, "an account with this email already exists"
	case errors.Is(err, account.ErrAccountNotFound):
		return http.StatusNotFound, apierror.CodeNotFound, "account not found"
	case errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized, apierror.CodeUnauthorized, "invalid credentials"
	case errors.Is(err, account.ErrMissingField):
		return http.StatusBadRequest, apierror.CodeBadRequest, "all fields are required"
	case errors.Is(err, account.ErrInvalidPoints):
		return http.StatusBadRequest, apierror.CodeBadRequest, "points must not be negative"
	case errors.Is(err, learn.ErrUnknownTopic):
		return http.StatusNotFound, apierror.CodeNotFound, "topic not found"
	case errors.Is(err, learn.ErrLessonNotFound):
		return http.StatusNotFound, apierror.CodeNotFound, "lesson not found or already submitted"
	case errors.Is(err, learn.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable, apierror.CodeUnavailable, "lesson generation is not available"
	case errors.Is(err, learn.ErrMalformedContent):
		return http.StatusServiceUnavailable, apierror.CodeUnavailable, "could not prepare the lesson, please try again"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, apierror.CodeUnavailable, "request timed out"
	default:
		return http.StatusInternalServerError, apierror.CodeInternal, ""
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, apierror.ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func logRequestError(ctx context.Context, logger *slog.Logger, message string, err error, userID string) {
	if logger == nil || err == nil {
		return
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logging.WithRequestID(ctx, logger, reqID)
	}
	logger.Error(message, slog.String("userId", userID), slog.Any("error", err))
}

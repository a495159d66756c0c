// Package learn generates topic lessons with a short quiz and scores the answers.
package learn

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrGeneratorUnavailable means no content model is configured.
	ErrGeneratorUnavailable = errors.New("lesson generator unavailable")
	// ErrMalformedContent means the model returned a lesson that cannot be used.
	ErrMalformedContent = errors.New("generated lesson is malformed")
	// ErrUnknownTopic is returned for topic ids not in the catalog.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrLessonNotFound covers unknown, expired, already scored and foreign lessons.
	ErrLessonNotFound = errors.New("lesson not found")
)

// Question is one multiple-choice quiz item.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Lesson is what a Generator produces: markdown body plus quiz.
type Lesson struct {
	Markdown string     `json:"lesson"`
	Quiz     []Question `json:"quiz"`
}

// Generator produces lesson content for a topic title.
type Generator interface {
	Generate(ctx context.Context, topicTitle string) (Lesson, error)
}

// Validate checks that a lesson can be shown and scored.
func Validate(l Lesson) error {
	if strings.TrimSpace(l.Markdown) == "" {
		return fmt.Errorf("%w: empty lesson", ErrMalformedContent)
	}
	if len(l.Quiz) == 0 {
		return fmt.Errorf("%w: no questions", ErrMalformedContent)
	}
	for i, q := range l.Quiz {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d is empty", ErrMalformedContent, i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrMalformedContent, i+1)
		}
		if !slices.Contains(q.Options, q.CorrectAnswer) {
			return fmt.Errorf("%w: question %d answer is not an option", ErrMalformedContent, i+1)
		}
	}
	return nil
}

// UnavailableGenerator is used when no model is configured.
type UnavailableGenerator struct{}

func (UnavailableGenerator) Generate(context.Context, string) (Lesson, error) {
	return Lesson{}, ErrGeneratorUnavailable
}

package learn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/yuin/goldmark"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/catalog"
)

// PointsPerCorrectAnswer is credited for every exact-match answer.
const PointsPerCorrectAnswer = 10

const (
	defaultCacheSize = 1024
	defaultLessonTTL = time.Hour
)

// PointsCreditor credits quiz points to an account.
type PointsCreditor interface {
	Credit(ctx context.Context, identifier string, amount int) (account.Credit, error)
}

// QuizItem is a question as shown to the learner, without its answer.
type QuizItem struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// StartedLesson is a generated lesson awaiting answers.
type StartedLesson struct {
	ID         string     `json:"id"`
	TopicID    string     `json:"topicId"`
	TopicTitle string     `json:"topicTitle"`
	Markdown   string     `json:"markdown"`
	HTML       string     `json:"html"`
	Quiz       []QuizItem `json:"quiz"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

// Review reports one scored answer.
type Review struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

// Result is the outcome of Submit.
type Result struct {
	LessonID      string         `json:"lessonId"`
	Score         int            `json:"score"`
	Total         int            `json:"total"`
	PointsAwarded int            `json:"pointsAwarded"`
	Review        []Review       `json:"review"`
	NewBadges     []string       `json:"newBadges"`
	Record        account.Record `json:"-"`
}

type pendingLesson struct {
	owner     string
	topicID   string
	quiz      []Question
	expiresAt time.Time
}

// Service hands out lessons and scores them once.
type Service struct {
	generator Generator
	catalog   *catalog.Catalog
	creditor  PointsCreditor
	pending   *lru.Cache
	markdown  goldmark.Markdown
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCacheSize bounds how many unscored lessons are kept.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pending, _ = lru.New(n)
		}
	}
}

// WithLessonTTL sets how long a lesson can be submitted after it was started.
func WithLessonTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the lesson flow.
func NewService(generator Generator, cat *catalog.Catalog, creditor PointsCreditor, opts ...Option) (*Service, error) {
	if generator == nil || cat == nil || creditor == nil {
		return nil, errors.New("generator, catalog and creditor are required")
	}
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("lesson cache: %w", err)
	}
	s := &Service{
		generator: generator,
		catalog:   cat,
		creditor:  creditor,
		pending:   cache,
		markdown:  goldmark.New(),
		ttl:       defaultLessonTTL,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartLesson generates a lesson for topicID and keeps its answers for identifier.
func (s *Service) StartLesson(ctx context.Context, identifier, topicID string) (StartedLesson, error) {
	topic, ok := s.catalog.Topic(topicID)
	if !ok {
		return StartedLesson{}, ErrUnknownTopic
	}

	lesson, err := s.generator.Generate(ctx, topic.Title)
	if err != nil {
		return StartedLesson{}, err
	}
	if err := Validate(lesson); err != nil {
		return StartedLesson{}, err
	}

	var html bytes.Buffer
	if err := s.markdown.Convert([]byte(lesson.Markdown), &html); err != nil {
		return StartedLesson{}, fmt.Errorf("render lesson: %w", err)
	}

	id := uuid.NewString()
	expiresAt := s.now().Add(s.ttl)
	s.pending.Add(id, pendingLesson{
		owner:     identifier,
		topicID:   topic.ID,
		quiz:      lesson.Quiz,
		expiresAt: expiresAt,
	})

	quiz := make([]QuizItem, 0, len(lesson.Quiz))
	for _, q := range lesson.Quiz {
		quiz = append(quiz, QuizItem{Question: q.Question, Options: append([]string(nil), q.Options...)})
	}

	s.logger.Info("lesson started",
		slog.String("userId", identifier),
		slog.String("topicId", topic.ID),
		slog.String("lessonId", id))

	return StartedLesson{
		ID:         id,
		TopicID:    topic.ID,
		TopicTitle: topic.Title,
		Markdown:   lesson.Markdown,
		HTML:       html.String(),
		Quiz:       quiz,
		ExpiresAt:  expiresAt,
	}, nil
}

// Submit scores answers for lessonID and credits the points. A lesson is scored once;
// missing answers count as wrong and extra answers are ignored.
func (s *Service) Submit(ctx context.Context, identifier, lessonID string, answers []string) (Result, error) {
	value, ok := s.pending.Get(lessonID)
	if !ok {
		return Result{}, ErrLessonNotFound
	}
	lesson := value.(pendingLesson)
	if lesson.owner != identifier {
		return Result{}, ErrLessonNotFound
	}
	if !s.pending.Remove(lessonID) {
		return Result{}, ErrLessonNotFound
	}
	if s.now().After(lesson.expiresAt) {
		return Result{}, ErrLessonNotFound
	}

	result := Result{LessonID: lessonID, Total: len(lesson.quiz), Review: make([]Review, 0, len(lesson.quiz))}
	for i, q := range lesson.quiz {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		correct := answer == q.CorrectAnswer
		if correct {
			result.Score++
		}
		result.Review = append(result.Review, Review{
			Question:      q.Question,
			Answer:        answer,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       correct,
		})
	}
	result.PointsAwarded = result.Score * PointsPerCorrectAnswer

	credit, err := s.creditor.Credit(ctx, identifier, result.PointsAwarded)
	if err != nil {
		return Result{}, fmt.Errorf("credit quiz points: %w", err)
	}
	result.Record = credit.Record
	result.NewBadges = credit.NewBadges
	if result.NewBadges == nil {
		result.NewBadges = []string{}
	}

	s.logger.Info("lesson scored",
		slog.String("userId", identifier),
		slog.String("topicId", lesson.topicID),
		slog.Int("score", result.Score),
		slog.Int("total", result.Total))
	return result, nil
}

package learn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultModel     = "gemini-2.5-flash"
	defaultAudience  = "14-year-old student in India"
	defaultMaxTokens = 2048
)

// GeminiConfig wires Gemini access.
type GeminiConfig struct {
	APIKey          string
	Model           string
	MaxOutputTokens int
	UseVertex       bool
	Project         string
	Location        string
	Audience        string
}

// GeminiGenerator asks Gemini for a lesson in a fixed JSON shape.
type GeminiGenerator struct {
	client    *genai.Client
	model     string
	maxTokens int
	audience  string
}

// NewGeminiGenerator builds a generator against the Gemini API or Vertex AI.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = defaultAudience
	}

	clientCfg := &genai.ClientConfig{}
	if cfg.UseVertex {
		project := strings.TrimSpace(cfg.Project)
		if project == "" {
			project = strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT"))
		}
		if project == "" {
			return nil, errors.New("vertex project id missing")
		}
		location := strings.TrimSpace(cfg.Location)
		if location == "" {
			return nil, errors.New("vertex location missing")
		}
		clientCfg.Project = project
		clientCfg.Location = location
		clientCfg.Backend = genai.BackendVertexAI
	} else {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("gemini api key missing")
		}
		clientCfg.APIKey = apiKey
		clientCfg.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, maxTokens: maxTokens, audience: audience}, nil
}

// Generate requests a lesson and quiz about topicTitle and validates the reply.
func (g *GeminiGenerator) Generate(ctx context.Context, topicTitle string) (Lesson, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(lessonPrompt(g.audience, topicTitle)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   lessonSchema(),
		Temperature:      genai.Ptr(float32(0.7)),
		MaxOutputTokens:  int32(g.maxTokens),
	})
	if err != nil {
		return Lesson{}, fmt.Errorf("generate lesson: %w", err)
	}
	return parseLesson(resp.Text())
}

func parseLesson(raw string) (Lesson, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Lesson{}, fmt.Errorf("%w: empty response", ErrMalformedContent)
	}
	var lesson Lesson
	if err := json.Unmarshal([]byte(raw), &lesson); err != nil {
		return Lesson{}, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if err := Validate(lesson); err != nil {
		return Lesson{}, err
	}
	return lesson, nil
}

func lessonPrompt(audience, topicTitle string) string {
	return fmt.Sprintf("Generate a short, engaging lesson and a 3-question multiple-choice quiz for a %s about %s. "+
		"Make the lesson easy to understand, use simple language, and include one fun fact. "+
		"Format the lesson using markdown (e.g., ## for headings, * for list items). "+
		"Each correctAnswer must be copied exactly from that question's options.", audience, topicTitle)
}

func lessonSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"lesson": {
				Type:        genai.TypeString,
				Description: "An engaging lesson in Markdown format about the topic.",
			},
			"quiz": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question":      {Type: genai.TypeString},
						"options":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
						"correctAnswer": {Type: genai.TypeString},
					},
					Required: []string{"question", "options", "correctAnswer"},
				},
			},
		},
		Required: []string{"lesson", "quiz"},
	}
}

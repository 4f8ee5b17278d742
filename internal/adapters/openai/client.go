package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/activity-timeline/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient implements the InferenceClient interface with chat
// completions instead of task-specific hosted models. Useful when no
// Hugging Face token is available.
type OpenAIClient struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// classificationResponse is the structured response requested from the model
type classificationResponse struct {
	Label  string             `json:"label"`
	Score  float64            `json:"score"`
	Scores map[string]float64 `json:"scores"`
}

type sentimentResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewOpenAIClient creates a new OpenAI-backed inference client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Classify asks the model to pick one of the candidate labels
func (c *OpenAIClient) Classify(ctx context.Context, text string, candidateLabels []string) (*core.Classification, error) {
	prompt := fmt.Sprintf(`Classify the following text into exactly one of these activity labels: %s.
Respond with a JSON object containing:
- label: the best matching label (must be one of the candidates)
- score: number between 0 and 1 (confidence in the chosen label)
- scores: object mapping every candidate label to a score between 0 and 1

Text:
%s

Respond only with the JSON object and nothing else.`,
		strings.Join(candidateLabels, ", "), text)

	responseText, err := c.complete(ctx, "You are a text classification system. Respond only with JSON.", prompt)
	if err != nil {
		return nil, err
	}

	var parsed classificationResponse
	if err := unmarshalLenient(responseText, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classification response: %w", err)
	}
	if parsed.Label == "" {
		return nil, fmt.Errorf("classification response missing label")
	}

	return &core.Classification{
		Label:      parsed.Label,
		Confidence: parsed.Score,
		AllScores:  parsed.Scores,
		Model:      c.modelName,
	}, nil
}

// AnalyzeSentiment asks the model for a sentiment label and score
func (c *OpenAIClient) AnalyzeSentiment(ctx context.Context, text string) (*core.Sentiment, error) {
	prompt := fmt.Sprintf(`Determine the sentiment of the following text.
Respond with a JSON object containing:
- label: one of "positive", "negative" or "neutral"
- score: number between 0 and 1 (confidence in the label)

Text:
%s

Respond only with the JSON object and nothing else.`, text)

	responseText, err := c.complete(ctx, "You are a sentiment analysis system. Respond only with JSON.", prompt)
	if err != nil {
		return nil, err
	}

	var parsed sentimentResponse
	if err := unmarshalLenient(responseText, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment response: %w", err)
	}

	return &core.Sentiment{
		Label: strings.ToLower(parsed.Label),
		Score: parsed.Score,
	}, nil
}

// Summarize asks the model for a short plain-text summary
func (c *OpenAIClient) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following text in two or three sentences. Respond with the summary only.

Text:
%s`, text)

	summary, err := c.complete(ctx, "You summarize text concisely.", prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func (c *OpenAIClient) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// unmarshalLenient extracts the JSON object even when the model wraps it
// in prose or code fences
func unmarshalLenient(text string, out interface{}) error {
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(text[start:end+1]), out)
}

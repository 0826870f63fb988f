package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

// Classifier maps a site description onto the configured category set with one
// LLM call. The underlying client is long-lived: one Classifier serves the
// whole batch. invoke is swappable for tests.
type Classifier struct {
	cfg       Config
	anthropic *anthropic.Client
	invoke    func(ctx context.Context, prompt string) (string, error)
}

func NewClassifier(cfg Config) *Classifier {
	c := &Classifier{cfg: cfg}
	switch cfg.LLMProvider {
	case "openai":
		c.invoke = c.callOpenAI
	case "none":
		c.invoke = nil
	default:
		client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
		c.anthropic = &client
		c.invoke = c.callAnthropic
	}
	return c
}

// Classify returns a category from the configured set, or Uncategorized when
// the description is empty, the provider is disabled, the call fails, or the
// response falls outside the set. It never retries.
func (c *Classifier) Classify(ctx context.Context, description string) string {
	description = strings.TrimSpace(description)
	if description == "" || c.invoke == nil {
		return CategoryUncategorized
	}

	prompt := buildClassificationPrompt(c.cfg, description)
	response, err := c.invoke(ctx, prompt)
	if err != nil {
		log.Printf("classify error (degraded to %s): %v", CategoryUncategorized, err)
		return CategoryUncategorized
	}

	category, ok := c.cfg.IsKnownCategory(trimResponse(response))
	if !ok {
		log.Printf("classify response %q outside category set, using %s", trimResponse(response), CategoryUncategorized)
		return CategoryUncategorized
	}
	return category
}

func buildClassificationPrompt(cfg Config, description string) string {
	prompt := strings.ReplaceAll(cfg.PromptTemplate, "%CATEGORIES%", strings.Join(cfg.Categories, ", "))
	return strings.ReplaceAll(prompt, "%DESCRIPTION%", description)
}

// trimResponse strips markdown fences and quotes that models wrap short
// answers in.
func trimResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.Trim(s, "\"'")
	return strings.TrimSpace(s)
}

// --- Anthropic ---

func (c *Classifier) callAnthropic(ctx context.Context, prompt string) (string, error) {
	model := c.cfg.LLMModel
	if model == "" {
		model = defaultAnthropicModel
	}

	message, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 64,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("classify provider=anthropic model=%s tokens_in=%d tokens_out=%d", model, message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

var openAIEndpoint = "https://api.openai.com/v1/chat/completions"

func (c *Classifier) callOpenAI(ctx context.Context, prompt string) (string, error) {
	model := c.cfg.LLMModel
	if model == "" {
		model = defaultOpenAIModel
	}

	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openAIEndpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", fmt.Errorf("parsing OpenAI response: %w", err)
	}
	if openAIResp.Error != nil {
		return "", fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}

	log.Printf("classify provider=openai model=%s size=%d", model, len(openAIResp.Choices[0].Message.Content))
	return openAIResp.Choices[0].Message.Content, nil
}

package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/lorekeep/chronicle-api/internal/config"
)

// GeminiExecutor implements the Executor interface using Google's Gemini API.
// A single shared rate limiter caps the aggregate request rate regardless of
// how many pool workers call into it concurrently.
type GeminiExecutor struct {
	logger  *slog.Logger
	client  *genai.Client
	limiter *rate.Limiter
}

// NewGeminiExecutor creates a GeminiExecutor from the LLM configuration.
// It validates the configuration and establishes the API client.
func NewGeminiExecutor(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*GeminiExecutor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.TextModel == "" || cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: model names cannot be empty", ErrInvalidConfig)
	}
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("%w: requests per minute must be positive", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &GeminiExecutor{
		logger:  logger.With("component", "gemini_executor"),
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

// Execute runs a single enrichment request. Text and narrative kinds stream
// their output through onDelta; image generation settles in one call.
func (e *GeminiExecutor) Execute(
	ctx context.Context,
	req Request,
	onDelta func(Delta),
) (*Result, error) {
	prompt, err := parsePrompt(req.Payload)
	if err != nil {
		return nil, err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	start := time.Now()
	e.logger.DebugContext(ctx, "executing enrichment request",
		"task_id", req.TaskID,
		"kind", req.Kind,
		"model", req.Call.Model)

	var output json.RawMessage
	switch req.Kind {
	case KindText, KindNarrative:
		output, err = e.generateText(ctx, req, prompt, onDelta)
	case KindImage:
		output, err = e.generateImage(ctx, req, prompt)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Output: output,
		Debug: &Debug{
			Model:     req.Call.Model,
			Prompt:    prompt.Text,
			LatencyMS: time.Since(start).Milliseconds(),
		},
	}, nil
}

// generateText streams a text or narrative generation, forwarding thinking
// and text fragments to onDelta as they arrive.
func (e *GeminiExecutor) generateText(
	ctx context.Context,
	req Request,
	prompt Prompt,
	onDelta func(Delta),
) (json.RawMessage, error) {
	genCfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{IncludeThoughts: true},
	}
	if prompt.Style != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(
			"Write in the following style: "+prompt.Style, genai.RoleUser)
	}

	var text strings.Builder
	for resp, err := range e.client.Models.GenerateContentStream(
		ctx, req.Call.Model, genai.Text(prompt.Text), genCfg,
	) {
		if err != nil {
			return nil, fmt.Errorf("text generation failed: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part.Text == "" {
					continue
				}
				if !part.Thought {
					text.WriteString(part.Text)
				}
				if onDelta != nil {
					onDelta(Delta{TaskID: req.TaskID, Thinking: part.Thought, Text: part.Text})
				}
			}
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("%w: model returned no text", ErrInvalidResponse)
	}

	return json.Marshal(TextOutput{Text: text.String()})
}

// generateImage produces a single illustration for the prompt.
func (e *GeminiExecutor) generateImage(
	ctx context.Context,
	req Request,
	prompt Prompt,
) (json.RawMessage, error) {
	text := prompt.Text
	if prompt.Style != "" {
		text = text + ", in the style of " + prompt.Style
	}

	resp, err := e.client.Models.GenerateImages(ctx, req.Call.Model, text,
		&genai.GenerateImagesConfig{NumberOfImages: 1})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("%w: model returned no image", ErrInvalidResponse)
	}

	img := resp.GeneratedImages[0].Image
	return json.Marshal(ImageOutput{
		MIMEType: img.MIMEType,
		Data:     img.ImageBytes,
	})
}

// parsePrompt decodes and validates the opaque task payload.
func parsePrompt(payload json.RawMessage) (Prompt, error) {
	var prompt Prompt
	if err := json.Unmarshal(payload, &prompt); err != nil {
		return Prompt{}, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if strings.TrimSpace(prompt.Text) == "" {
		return Prompt{}, ErrEmptyPrompt
	}
	return prompt, nil
}

// Ensure GeminiExecutor implements Executor
var _ Executor = (*GeminiExecutor)(nil)

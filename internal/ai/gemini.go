package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"video-wizard/internal/apikeys"
	"video-wizard/internal/i18n"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiService drafts narration scripts. It keeps one genai client per API
// key and moves to the next key when the backend reports quota or auth errors.
type GeminiService struct {
	keys      *apikeys.KeyManager
	modelName string
	logger    *zap.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiService(keys *apikeys.KeyManager, modelName string, logger *zap.Logger) *GeminiService {
	return &GeminiService{
		keys:      keys,
		modelName: modelName,
		logger:    logger,
		clients:   make(map[string]*genai.Client),
	}
}

// DraftScript asks the backend for a 50-100 word voice-over for clipCount
// clips, written in lang. A response without text yields "" and no error.
func (s *GeminiService) DraftScript(ctx context.Context, clipCount int, lang string) (string, error) {
	prompt := draftPrompt(clipCount, lang)
	s.logger.Info("Drafting narration script", zap.Int("clips", clipCount), zap.String("lang", lang))

	var lastErr error
	for attempt := 0; attempt < s.keys.Len(); attempt++ {
		slot, key := s.keys.Current()
		client, err := s.client(ctx, key)
		if err != nil {
			return "", err
		}

		res, err := client.GenerativeModel(s.modelName).GenerateContent(ctx, genai.Text(prompt))
		if err == nil {
			return extractText(res), nil
		}
		if !isQuotaError(err) {
			return "", fmt.Errorf("gemini content generation failed: %w", err)
		}

		lastErr = err
		s.logger.Warn("Gemini key rejected, rotating", zap.Int("attempt", attempt+1), zap.Error(err))
		s.keys.Rotate(slot)
	}

	return "", fmt.Errorf("%w: %v", apikeys.ErrAllKeysExhausted, lastErr)
}

func (s *GeminiService) client(ctx context.Context, key string) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("could not create new genai client: %w", err)
	}
	s.clients[key] = c
	return c, nil
}

func (s *GeminiService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, c := range s.clients {
		errs = append(errs, c.Close())
		delete(s.clients, key)
	}
	return errors.Join(errs...)
}

func draftPrompt(clipCount int, lang string) string {
	return fmt.Sprintf(
		"You are a professional video editor. I have %d short video clips. "+
			"Write an engaging, natural-sounding voice-over narration script in %s for this video. "+
			"The script should be about 50-100 words long. Reply with the narration text only.",
		clipCount,
		i18n.LanguageName(lang),
	)
}

func extractText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

func isQuotaError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "API_KEY_INVALID")
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"video-wizard/internal/apikeys"
	"video-wizard/internal/proxy"
	"video-wizard/internal/storage"

	"go.uber.org/zap"
)

var ErrSpeechBackend = errors.New("speech backend request failed")

// SpeechCache stores base64 audio payloads keyed by storage.SpeechKey.
type SpeechCache interface {
	GetSpeech(ctx context.Context, key string) (string, bool, error)
	PutSpeech(ctx context.Context, key, voiceName, audioBase64 string) error
}

type SpeechOptions struct {
	BaseURL string
	Model   string
	Keys    *apikeys.KeyManager
	Proxies *proxy.Manager // optional
	Cache   SpeechCache    // optional
	Timeout time.Duration
	Logger  *zap.Logger
}

// SpeechService calls the generateContent REST endpoint with the AUDIO
// response modality and returns the base64 PCM payload.
type SpeechService struct {
	baseURL    string
	model      string
	keys       *apikeys.KeyManager
	proxies    *proxy.Manager
	cache      SpeechCache
	httpClient *http.Client
	logger     *zap.Logger
}

func NewSpeechService(opts SpeechOptions) *SpeechService {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	client := &http.Client{Timeout: timeout}
	if opts.Proxies != nil {
		client.Transport = opts.Proxies.Transport()
	}
	return &SpeechService{
		baseURL:    opts.BaseURL,
		model:      opts.Model,
		keys:       opts.Keys,
		proxies:    opts.Proxies,
		cache:      opts.Cache,
		httpClient: client,
		logger:     opts.Logger,
	}
}

type speechRequest struct {
	Contents         []speechContent        `json:"contents"`
	GenerationConfig speechGenerationConfig `json:"generationConfig"`
}

type speechContent struct {
	Parts []speechPart `json:"parts"`
}

type speechPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type speechGenerationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type speechResponse struct {
	Candidates []struct {
		Content *speechContent `json:"content"`
	} `json:"candidates"`
}

// SynthesizeSpeech returns the base64 audio for text spoken by voiceName, or
// "" when the backend answers without audio. Transport and status failures
// are returned wrapped in ErrSpeechBackend.
func (s *SpeechService) SynthesizeSpeech(ctx context.Context, text, voiceName string) (string, error) {
	key := storage.SpeechKey(s.model, voiceName, text)
	if s.cache != nil {
		if audio, ok, err := s.cache.GetSpeech(ctx, key); err != nil {
			s.logger.Warn("Speech cache lookup failed", zap.Error(err))
		} else if ok {
			s.logger.Debug("Speech cache hit", zap.String("voice", voiceName))
			return audio, nil
		}
	}

	payload := speechRequest{
		Contents: []speechContent{{Parts: []speechPart{{Text: text}}}},
		GenerationConfig: speechGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	payload.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voiceName
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal speech request: %w", err)
	}

	audio, err := s.post(ctx, body)
	if err != nil {
		return "", err
	}

	if audio != "" && s.cache != nil {
		if err := s.cache.PutSpeech(ctx, key, voiceName, audio); err != nil {
			s.logger.Warn("Failed to cache speech", zap.Error(err))
		}
	}
	return audio, nil
}

func (s *SpeechService) post(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, s.model)

	attempts := s.keys.Len()
	if s.proxies != nil {
		attempts += s.proxies.Len()
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		slot, apiKey := s.keys.Current()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to create speech request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", apiKey)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			s.logger.Warn("Speech request failed", zap.Int("attempt", i+1), zap.Error(err))
			if s.proxies == nil {
				break
			}
			s.proxies.Rotate()
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			lastErr = fmt.Errorf("status %s", resp.Status)
			s.logger.Warn("Quota/auth error from speech backend, rotating key", zap.Int("key", slot+1), zap.String("status", resp.Status))
			s.keys.Rotate(slot)
			continue
		case resp.StatusCode != http.StatusOK:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return "", fmt.Errorf("%w: status %s: %s", ErrSpeechBackend, resp.Status, string(msg))
		}

		var parsed speechResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("%w: failed to decode response: %v", ErrSpeechBackend, err)
		}
		return extractAudio(parsed), nil
	}

	return "", fmt.Errorf("%w: %v", ErrSpeechBackend, lastErr)
}

func extractAudio(res speechResponse) string {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	parts := res.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].InlineData == nil {
		return ""
	}
	return parts[0].InlineData.Data
}

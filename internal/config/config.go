package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKeys      []string
	ScriptModel        string
	SpeechModel        string
	GeminiBaseURL      string
	ProxyURLs          []string
	DefaultLang        string
	DatabasePath       string
	HTTPAddr           string
	AudioSampleRate    int
	ExportTick         time.Duration
	SessionIdleTimeout time.Duration
	MediaDir           string
	MaxUploadBytes     int64
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	// a missing .env is fine; plain environment variables still apply
	_ = godotenv.Load()

	keys, err := requireEnv("GEMINI_API_KEYS")
	if err != nil {
		return nil, err
	}

	sampleRate, err := intEnv("AUDIO_SAMPLE_RATE", 24000)
	if err != nil {
		return nil, err
	}
	uploadMB, err := intEnv("MAX_UPLOAD_MB", 512)
	if err != nil {
		return nil, err
	}
	tick, err := durationEnv("EXPORT_TICK", 50*time.Millisecond)
	if err != nil {
		return nil, err
	}
	idle, err := durationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	lang := strings.ToLower(getEnv("DEFAULT_LANG", "vi"))
	if lang != "vi" && lang != "en" {
		return nil, fmt.Errorf("invalid DEFAULT_LANG %q: must be vi or en", lang)
	}

	return &Config{
		GeminiAPIKeys:      splitList(keys),
		ScriptModel:        getEnv("GEMINI_SCRIPT_MODEL", "gemini-2.5-flash"),
		SpeechModel:        getEnv("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiBaseURL:      strings.TrimRight(getEnv("GEMINI_API_BASE_URL", "https://generativelanguage.googleapis.com"), "/"),
		ProxyURLs:          splitList(getEnv("PROXY_URLS", "")),
		DefaultLang:        lang,
		DatabasePath:       getEnv("DATABASE_PATH", "./speech_cache.db"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		AudioSampleRate:    sampleRate,
		ExportTick:         tick,
		SessionIdleTimeout: idle,
		MediaDir:           getEnv("MEDIA_DIR", filepath.Join(os.TempDir(), "video-wizard")),
		MaxUploadBytes:     int64(uploadMB) << 20,
	}, nil
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	return value
}

func requireEnv(key string) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("required environment variable %s is set but empty", key)
	}
	return value, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

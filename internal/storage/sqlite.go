package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage caches synthesized speech so repeated previews of the same text and
// voice skip the backend. It holds backend responses only, never project state.
type Storage struct {
	db *sql.DB
}

func New(databasePath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &Storage{db: db}
	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return storage, nil
}

func (s *Storage) initDB() error {
	query := `
    CREATE TABLE IF NOT EXISTS speech_cache (
        cache_key TEXT PRIMARY KEY,
        voice_name TEXT NOT NULL,
        audio_base64 TEXT NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`
	_, err := s.db.Exec(query)
	return err
}

// SpeechKey derives the cache key for a synthesis request.
func SpeechKey(model, voiceName, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + voiceName + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (s *Storage) GetSpeech(ctx context.Context, key string) (string, bool, error) {
	var audio string
	err := s.db.QueryRowContext(ctx, `SELECT audio_base64 FROM speech_cache WHERE cache_key = ?`, key).Scan(&audio)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("failed to query speech cache: %w", err)
	}
	return audio, true, nil
}

func (s *Storage) PutSpeech(ctx context.Context, key, voiceName, audioBase64 string) error {
	query := `
    INSERT OR REPLACE INTO speech_cache (cache_key, voice_name, audio_base64)
    VALUES (?, ?, ?);`

	if _, err := s.db.ExecContext(ctx, query, key, voiceName, audioBase64); err != nil {
		return fmt.Errorf("failed to store speech for voice %s: %w", voiceName, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

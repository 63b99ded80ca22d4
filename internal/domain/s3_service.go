package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vovarama1992/voice_chat/internal/conversation"
	"github.com/Vovarama1992/voice_chat/internal/ports"
)

type audioArchive struct {
	client ports.S3Client
	now    func() time.Time
}

func NewAudioArchive(client ports.S3Client) ports.AudioArchive {
	return &audioArchive{client: client, now: time.Now}
}

// ObjectKey — путь в бакете: <session>/<date>/<uuid><ext>
func (s *audioArchive) ObjectKey(sessionID, filename string) string {
	date := s.now().Format("2006-01-02")
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" || ext == "." {
		ext = ".wav"
	}
	return fmt.Sprintf("%s/%s/%s%s", sessionID, date, uuid.NewString(), ext)
}

func (s *audioArchive) SaveAudio(ctx context.Context, sessionID string, audio []byte, filename string) (string, error) {
	if sessionID == "" {
		return "", errors.New("sessionID required")
	}
	if !conversation.ValidSessionID(sessionID) {
		return "", fmt.Errorf("invalid sessionID %q", sessionID)
	}

	key := s.ObjectKey(sessionID, filename)
	return s.client.PutObject(ctx, key, bytes.NewReader(audio), int64(len(audio)), contentTypeFor(key))
}

func contentTypeFor(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".mp3", ".mpga", ".mpeg":
		return "audio/mpeg"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	}
	return "audio/wav"
}

package ports

import (
	"context"
	"io"
)

// AudioArchive сохраняет исходные записи, прошедшие транскрипцию.
type AudioArchive interface {
	SaveAudio(ctx context.Context, sessionID string, audio []byte, filename string) (string, error)
}

// S3Client — хранилище, в которое архив кладёт записи; возвращает публичный URL объекта.
type S3Client interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (publicURL string, err error)
}

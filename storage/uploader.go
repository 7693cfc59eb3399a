package storage

import (
	"context"
	"io"
)

// UploadResult описывает загруженный объект; Location — публичный URL,
// пригодный для вставки в анонс.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader публикует снапшоты сетки в объектное хранилище.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	GetPublicURL(key string) string
}

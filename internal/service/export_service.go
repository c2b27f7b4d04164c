package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"
	"desorientado_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const exportBatchSize = 200

type documentIterator interface {
	Each(ctx context.Context, size int, fn func(doc model.ProgressDocument) error) error
}

type ExportResult struct {
	Object    string    `json:"object"`
	URL       string    `json:"url"`
	Documents int       `json:"documents"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"createdAt"`
}

type exportLine struct {
	UserID    uint              `json:"userId"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Progress  progress.Progress `json:"progress"`
}

// ExportService writes a JSON-lines snapshot of every progress document to
// object storage.
type ExportService struct {
	docs    documentIterator
	storage *StorageService
	now     func() time.Time
}

func NewExportService(docs documentIterator, storage *StorageService) *ExportService {
	return &ExportService{docs: docs, storage: storage, now: time.Now}
}

func (s *ExportService) Export(ctx context.Context) (*ExportResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	count := 0

	err := s.docs.Each(ctx, exportBatchSize, func(doc model.ProgressDocument) error {
		count++
		return enc.Encode(exportLine{
			UserID:    doc.UserID,
			UpdatedAt: doc.UpdatedAt,
			Progress:  progress.Decode([]byte(doc.Data)),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read progress documents: %w", err)
	}

	now := s.now().UTC()
	object := fmt.Sprintf("exports/progress-%s-%s.jsonl", now.Format("20060102-150405"), uuid.NewString()[:8])
	size := buf.Len()

	url, err := s.storage.Upload(ctx, object, &buf, int64(size), "application/x-ndjson")
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	logger.Log.Info("Progress export written",
		zap.String("object", object),
		zap.Int("documents", count),
		zap.Int("bytes", size))

	return &ExportResult{Object: object, URL: url, Documents: count, Bytes: size, CreatedAt: now}, nil
}

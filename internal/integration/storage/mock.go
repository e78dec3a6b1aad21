package storage

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector fakes the object store for local development. It never
// stores anything and returns deterministic URLs derived from the content.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) UploadObject(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	url := fmt.Sprintf("https://storage.local/mock/%s/%s", contentHash(data)[:12], filename)
	ctxzap.Info(ctx, "[MOCK] object uploaded",
		zap.String("filename", filename),
		zap.Int("size", len(data)),
		zap.String("url", url),
	)
	return url, nil
}

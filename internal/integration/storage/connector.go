// Package storage uploads session resources to the object store service.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/config"
	"github.com/protolab/prototype-backend/internal/integration/common"
	pkghttp "github.com/protolab/prototype-backend/pkg/http"
)

const (
	dedupTTL     = 24 * time.Hour
	dedupCleanup = 1 * time.Hour
)

type Connector struct {
	config    config.StorageConnectorConfig
	connector *pkghttp.Connector
	// dedup maps content hash to the already assigned public URL, so the
	// same image attached twice is uploaded once.
	dedup  *cache.Cache
	logger *zap.Logger
}

func NewConnector(cfg config.StorageConnectorConfig, logger *zap.Logger) *Connector {
	return &Connector{
		config:    cfg,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		dedup:     cache.New(dedupTTL, dedupCleanup),
		logger:    logger,
	}
}

type uploadResponse struct {
	Key string `json:"key"`
}

// UploadObject stores the data and returns its public URL.
func (c *Connector) UploadObject(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	hash := contentHash(data)
	if url, found := c.dedup.Get(hash); found {
		ctxzap.Debug(ctx, "upload deduplicated",
			zap.String("filename", filename),
			zap.String("url", url.(string)),
		)
		return url.(string), nil
	}

	ctxzap.Info(ctx, "uploading object",
		zap.String("filename", filename),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)),
	)

	var resp uploadResponse
	err := retry.Do(func() error {
		return c.connector.DoMultipartRequest(ctx, http.MethodPost, c.config.UploadEndpoint,
			func(w *multipart.Writer) error {
				header := textproto.MIMEHeader{}
				header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
				header.Set("Content-Type", contentType)

				part, err := w.CreatePart(header)
				if err != nil {
					return fmt.Errorf("create form part: %w", err)
				}
				if _, err := part.Write(data); err != nil {
					return fmt.Errorf("write form part: %w", err)
				}
				return nil
			}, &resp)
	}, append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))...)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}

	if resp.Key == "" {
		return "", fmt.Errorf("upload response has no object key")
	}

	url := strings.TrimRight(c.config.PublicBaseURL, "/") + "/" + resp.Key
	c.dedup.Set(hash, url, cache.DefaultExpiration)

	ctxzap.Info(ctx, "object uploaded", zap.String("url", url))

	return url, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/protolab/prototype-backend/internal/config"
	"github.com/protolab/prototype-backend/internal/entity"
)

// AllowedImageExtensions are the image types the model can consume as
// vision input.
var AllowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// Validator validates resource uploads
type Validator struct {
	cfg config.ResourceUploadConfig
}

func NewResourceValidator(cfg config.ResourceUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) ValidateCreateSession(req *entity.CreateSessionRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name", entity.ErrMissingField)
	}

	return nil
}

func (v *Validator) ValidateChat(req *entity.ChatRequest) error {
	if strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("%w: content", entity.ErrMissingField)
	}

	return nil
}

// ValidateUpload validates image uploads.
func (v *Validator) ValidateUpload(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: files", entity.ErrMissingField)
	}

	if len(files) > v.cfg.MaxFileCount {
		return fmt.Errorf("%w: maximum %d files allowed, got %d", entity.ErrInvalidResource, v.cfg.MaxFileCount, len(files))
	}

	var totalSize int64
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if _, ok := AllowedImageExtensions[ext]; !ok {
			return fmt.Errorf("%w: %s (allowed: png, jpg, jpeg, webp, gif)", entity.ErrInvalidResource, ext)
		}

		if fh.Size > v.cfg.MaxFileSize {
			return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrResourceTooLarge, fh.Filename, fh.Size, v.cfg.MaxFileSize)
		}

		totalSize += fh.Size
	}

	if totalSize > v.cfg.MaxUploadSize {
		return fmt.Errorf("%w: total size is %d bytes (max %d)", entity.ErrResourceTooLarge, totalSize, v.cfg.MaxUploadSize)
	}

	return nil
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}

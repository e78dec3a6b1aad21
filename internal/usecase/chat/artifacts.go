package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/entity"
	"github.com/protolab/prototype-backend/internal/marker"
)

// applyStructure materializes the confirmed structure as PENDING pages in
// declaration order. Paths already present in the session are left alone:
// path is the stable identity deciding create vs update.
func (uc *Usecase) applyStructure(ctx context.Context, session *entity.Session, specs []entity.PageSpec) error {
	for i, spec := range specs {
		_, err := uc.pageRepo.GetPageByPath(ctx, session.ID, spec.Path)
		if err == nil {
			continue
		}
		if !errors.Is(err, entity.ErrPageNotFound) {
			return fmt.Errorf("look up page %q: %w", spec.Path, err)
		}

		if _, err := uc.pageRepo.CreatePage(ctx, entity.Page{
			SessionID:   session.ID,
			Name:        spec.Name,
			Path:        spec.Path,
			Description: spec.Description,
			Status:      entity.PageStatusPending,
			Version:     1,
			SortOrder:   i,
		}); err != nil {
			return fmt.Errorf("create page %q: %w", spec.Path, err)
		}
	}
	return nil
}

// applyGeneratedPage commits one generation turn's result. Code without any
// markup signal is not stored as content: prose would corrupt the artifact,
// so it is buffered and surfaced as a warning instead. Returns whether the
// page content was accepted.
func (uc *Usecase) applyGeneratedPage(ctx context.Context, session *entity.Session, spec entity.PageSpec, code string, index, total int) (bool, error) {
	page, err := uc.pageRepo.GetPageByPath(ctx, session.ID, spec.Path)
	if err != nil {
		return false, fmt.Errorf("look up page %q: %w", spec.Path, err)
	}

	if code == "" {
		uc.addNote(ctx, session.ID, fmt.Sprintf("No code found in the reply for page %q (%d/%d).", spec.Name, index+1, total))
		return false, nil
	}

	if !marker.HasMarkupSignal(code) {
		if err := uc.pageRepo.UpdatePagePartialContent(ctx, page.ID, code); err != nil {
			ctxzap.Error(ctx, "failed to buffer rejected content", zap.String("page_id", page.ID), zap.Error(err))
		}
		uc.addNote(ctx, session.ID, fmt.Sprintf("The reply for page %q (%d/%d) contained no markup and was not stored.", spec.Name, index+1, total))
		return false, nil
	}

	version := page.Version
	if page.Content != "" {
		if err := uc.archivePage(ctx, page, "regenerated"); err != nil {
			return false, err
		}
		version++
	}

	if _, err := uc.pageRepo.UpdatePageContent(ctx, page.ID, code, version, entity.PageStatusGenerated); err != nil {
		return false, fmt.Errorf("store page %q content: %w", spec.Path, err)
	}

	return true, nil
}

// applyEdit rewrites a finished page from an editing-stage reply: the prior
// (content, version) pair is archived before the overwrite and the version
// is bumped.
func (uc *Usecase) applyEdit(ctx context.Context, session *entity.Session, pageName, reply string) error {
	page, err := uc.pageRepo.GetPageByName(ctx, session.ID, pageName)
	if errors.Is(err, entity.ErrPageNotFound) {
		uc.addNote(ctx, session.ID, fmt.Sprintf("The assistant reported editing page %q, but no such page exists.", pageName))
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up page %q: %w", pageName, err)
	}

	code := marker.ExtractCodeBlock(reply, "html")
	if code == "" || !marker.HasMarkupSignal(code) {
		uc.addNote(ctx, session.ID, fmt.Sprintf("No usable code found in the edit reply for page %q; the page was left unchanged.", pageName))
		return nil
	}

	if err := uc.archivePage(ctx, page, "edited on user request"); err != nil {
		return err
	}

	if _, err := uc.pageRepo.UpdatePageContent(ctx, page.ID, code, page.Version+1, entity.PageStatusModified); err != nil {
		return fmt.Errorf("store edited page %q: %w", pageName, err)
	}

	uc.addNote(ctx, session.ID, fmt.Sprintf("Page %q updated to version %d.", pageName, page.Version+1))
	return nil
}

func (uc *Usecase) archivePage(ctx context.Context, page *entity.Page, note string) error {
	if _, err := uc.historyRepo.CreatePageHistory(ctx, entity.PageHistory{
		PageID:     page.ID,
		Content:    page.Content,
		Version:    page.Version,
		ChangeNote: note,
	}); err != nil {
		return fmt.Errorf("archive page %q version %d: %w", page.Path, page.Version, err)
	}
	return nil
}

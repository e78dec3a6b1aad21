package session

import "github.com/protolab/prototype-backend/internal/entity"

// sessionToDTO converts a Session model to its API shape.
func sessionToDTO(session *entity.Session) *entity.SessionDTO {
	if session == nil {
		return nil
	}

	return &entity.SessionDTO{
		ID:          session.ID,
		Name:        session.Name,
		Description: session.Description,
		Stage:       session.Stage,
		Generating:  session.Generating,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}

// pageToDTO converts a Page model to its listing shape. Content is omitted:
// listings stay small, the single-page endpoint serves the full page.
func pageToDTO(page *entity.Page) *entity.PageDTO {
	if page == nil {
		return nil
	}

	return &entity.PageDTO{
		ID:          page.ID,
		Name:        page.Name,
		Path:        page.Path,
		Description: page.Description,
		Status:      page.Status,
		Version:     page.Version,
		SortOrder:   page.SortOrder,
		UpdatedAt:   page.UpdatedAt,
	}
}

package session

import "github.com/protolab/prototype-backend/internal/entity"

// historyToDTOs converts archived page versions to their API shape. The page
// id is implied by the URL and dropped.
func historyToDTOs(history []*entity.PageHistory) []entity.PageHistoryDTO {
	dtos := make([]entity.PageHistoryDTO, 0, len(history))
	for _, h := range history {
		dtos = append(dtos, entity.PageHistoryDTO{
			Version:    h.Version,
			Content:    h.Content,
			ChangeNote: h.ChangeNote,
			CreatedAt:  h.CreatedAt,
		})
	}
	return dtos
}

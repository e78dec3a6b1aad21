package entity

import "time"

type CreateSessionRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type UpdateSessionRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ChatRequest struct {
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"` // resource URLs returned by the upload endpoint
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Stage     Stage  `json:"stage"`
	Reply     string `json:"reply"`
}

type SessionDTO struct {
	ID          string    `json:"session_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Stage       Stage     `json:"stage"`
	Generating  bool      `json:"generating"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SessionListResponse struct {
	Sessions []SessionDTO `json:"sessions"`
	Total    int          `json:"total"`
	HasMore  bool         `json:"has_more"`
}

type MessageListResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"has_more"`
}

type PageDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	Description string     `json:"description"`
	Status      PageStatus `json:"status"`
	Version     int        `json:"version"`
	SortOrder   int        `json:"sort_order"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type PageHistoryDTO struct {
	Version    int       `json:"version"`
	Content    string    `json:"content"`
	ChangeNote string    `json:"change_note"`
	CreatedAt  time.Time `json:"created_at"`
}

type UploadResourceResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ErrorResponse is the error body returned by every handler.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

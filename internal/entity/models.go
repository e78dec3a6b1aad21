package entity

import (
	"fmt"
	"time"
)

type Stage string

// Stage represents the current position of a session in the
// requirement-to-prototype workflow.
const (
	StageNone       Stage = "NONE"       // transient, before the first turn
	StageCollecting Stage = "COLLECTING" // gathering requirements from the user
	StageAnalyzing  Stage = "ANALYZING"  // producing the requirement analysis
	StageDesigning  Stage = "DESIGNING"  // designing the page structure
	StageGenerating Stage = "GENERATING" // generating page code
	StageCompleted  Stage = "COMPLETED"  // all pages generated
	StageEditing    Stage = "EDITING"    // revising generated pages
)

func (s Stage) Validate() error {
	switch s {
	case StageCollecting, StageAnalyzing, StageDesigning, StageGenerating, StageCompleted, StageEditing:
		return nil
	default:
		return fmt.Errorf("unknown stage: %s", s)
	}
}

type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
	// RoleInternal marks system-originated notes appended to the transcript
	// (stage-change notices, warnings, error notes). Never literal user input.
	RoleInternal MessageRole = "INTERNAL"
)

type PageStatus string

const (
	PageStatusPending    PageStatus = "PENDING"
	PageStatusGenerating PageStatus = "GENERATING"
	PageStatusGenerated  PageStatus = "GENERATED"
	PageStatusFailed     PageStatus = "FAILED"
	PageStatusModified   PageStatus = "MODIFIED"
)

// Session is one prototype design conversation.
type Session struct {
	ID            string    `json:"session_id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Stage         Stage     `json:"stage"`
	Requirements  *string   `json:"requirements,omitempty"`   // last confirmed requirement analysis
	PageStructure *string   `json:"page_structure,omitempty"` // confirmed structure, raw JSON
	Generating    bool      `json:"generating"`               // generation lock
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message is one transcript entry. Append-only, ordered by (created_at, id);
// IDs are UUIDv7 so ordering by ID matches creation order.
type Message struct {
	ID          string      `json:"id"`
	SessionID   string      `json:"session_id"`
	Role        MessageRole `json:"role"`
	Content     string      `json:"content"`
	IsCode      bool        `json:"is_code"`
	Attachments []string    `json:"attachments,omitempty"` // resource URLs
	CreatedAt   time.Time   `json:"created_at"`
}

// Page is a generated prototype page. Path is the stable identity within a
// session: structure re-application matches on it to decide create vs update.
type Page struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	Name           string     `json:"name"`
	Path           string     `json:"path"`
	Description    string     `json:"description"`
	Content        string     `json:"content"`
	PartialContent *string    `json:"partial_content,omitempty"` // buffer for truncated generations
	Status         PageStatus `json:"status"`
	Version        int        `json:"version"`
	SortOrder      int        `json:"sort_order"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// PageHistory archives a page's (content, version) pair before an overwrite.
// Immutable once written.
type PageHistory struct {
	ID         string    `json:"id"`
	PageID     string    `json:"page_id"`
	Content    string    `json:"content"`
	Version    int       `json:"version"`
	ChangeNote string    `json:"change_note"`
	CreatedAt  time.Time `json:"created_at"`
}

// Resource is an uploaded image referenced by messages as an opaque URL.
type Resource struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	ObjectKey   string    `json:"object_key"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// PageSpec is one page entry of the structure the AI proposes in the
// DESIGNING stage, parsed from its fenced JSON block.
type PageSpec struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "md"
	FormatPDF      ResultFormat = "pdf"
	FormatDOCX     ResultFormat = "docx"
)

func (f ResultFormat) Validate() error {
	switch f {
	case FormatMarkdown, FormatPDF, FormatDOCX:
		return nil
	default:
		return fmt.Errorf("unsupported result format: %s", f)
	}
}

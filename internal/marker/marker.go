// Package marker extracts machine-readable hints the AI embeds in otherwise
// free-text replies: stage tags and fenced JSON/code blocks.
//
// Model output is unreliable input. Nothing in this package returns an error;
// every miss degrades to a default so a malformed reply can never take the
// turn pipeline down.
package marker

import (
	"regexp"
	"strings"

	"github.com/protolab/prototype-backend/internal/entity"
)

// Marker carries the stage hints parsed from a single AI reply.
type Marker struct {
	CurrentStage entity.Stage
	// NextStage is StageNone when the reply declares no transition.
	NextStage entity.Stage
	// CurrentPage is set only when CurrentStage is GENERATING.
	CurrentPage string
	// ModifiedPage is set only when CurrentStage is EDITING.
	ModifiedPage string
}

// HasTransition reports whether the reply declared a stage transition.
func (m Marker) HasTransition() bool {
	return m.NextStage != entity.StageNone
}

// The AI is instructed to append tags at the end of its reply, but that is
// not guaranteed, so tags are matched anywhere in the text.
var (
	stageTagRe        = regexp.MustCompile(`(?i)<STAGE:\s*([A-Za-z_]+)\s*>`)
	nextStageTagRe    = regexp.MustCompile(`(?i)<NEXT_STAGE:\s*([A-Za-z_]+)\s*>`)
	currentPageTagRe  = regexp.MustCompile(`(?i)<CURRENT_PAGE:\s*([^<>]+?)\s*>`)
	modifiedPageTagRe = regexp.MustCompile(`(?i)<MODIFIED_PAGE:\s*([^<>]+?)\s*>`)
)

// ExtractStage scans text for stage tags. A missing or unrecognized
// <STAGE:..> tag defaults to COLLECTING; a missing or unrecognized
// <NEXT_STAGE:..> tag means no transition is declared.
func ExtractStage(text string) Marker {
	m := Marker{
		CurrentStage: entity.StageCollecting,
		NextStage:    entity.StageNone,
	}

	if match := stageTagRe.FindStringSubmatch(text); match != nil {
		if stage, ok := stageFromName(match[1]); ok {
			m.CurrentStage = stage
		}
	}

	if match := nextStageTagRe.FindStringSubmatch(text); match != nil {
		if stage, ok := stageFromName(match[1]); ok {
			m.NextStage = stage
		}
	}

	switch m.CurrentStage {
	case entity.StageGenerating:
		if match := currentPageTagRe.FindStringSubmatch(text); match != nil {
			m.CurrentPage = strings.TrimSpace(match[1])
		}
	case entity.StageEditing:
		if match := modifiedPageTagRe.FindStringSubmatch(text); match != nil {
			m.ModifiedPage = strings.TrimSpace(match[1])
		}
	}

	return m
}

// StripTags removes all recognized stage tags from text, so that transcript
// entries shown to the user do not carry the control syntax.
func StripTags(text string) string {
	for _, re := range []*regexp.Regexp{stageTagRe, nextStageTagRe, currentPageTagRe, modifiedPageTagRe} {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

func stageFromName(name string) (entity.Stage, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "COLLECTING":
		return entity.StageCollecting, true
	case "ANALYZING":
		return entity.StageAnalyzing, true
	case "DESIGNING":
		return entity.StageDesigning, true
	case "GENERATING":
		return entity.StageGenerating, true
	case "COMPLETED":
		return entity.StageCompleted, true
	case "EDITING":
		return entity.StageEditing, true
	default:
		return entity.StageNone, false
	}
}

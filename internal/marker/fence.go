package marker

import (
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?is)```json[ \t]*\r?\n(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\r?\n(.*?)```")

	// markupTagRe is the heuristic signal that a string is markup rather
	// than prose: any opening tag at all.
	markupTagRe = regexp.MustCompile(`<[a-zA-Z][a-zA-Z0-9-]*(\s[^<>]*)?/?>|<!DOCTYPE\s`)
)

// ExtractJSONBlock returns the content of the first fenced block labeled
// json, trimmed, or "" with ok=false when no such block exists.
func ExtractJSONBlock(text string) (string, bool) {
	match := jsonFenceRe.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

// ExtractCodeBlock returns the first fenced block whose language tag matches
// one of preferredLangs (tried in order), then the first fenced block with
// any tag, then the first paragraph containing a recognizable markup opening
// tag, and finally "". Unterminated fences are tolerated: an opening fence
// with no closing fence yields everything after the opening line.
func ExtractCodeBlock(text string, preferredLangs ...string) string {
	for _, lang := range preferredLangs {
		re, err := regexp.Compile("(?is)```" + regexp.QuoteMeta(lang) + "[ \t]*\r?\n(.*?)```")
		if err != nil {
			continue
		}
		if match := re.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}

	if match := anyFenceRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}

	// Unterminated fence: take everything after the opening line.
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			if body := strings.TrimSpace(rest[nl+1:]); body != "" {
				return body
			}
		}
	}

	// No fence at all: scan paragraphs for a markup signal.
	for _, para := range strings.Split(text, "\n\n") {
		if HasMarkupSignal(para) {
			return strings.TrimSpace(para)
		}
	}

	return ""
}

// HasMarkupSignal reports whether text contains at least one recognizable
// markup opening tag. Used to reject pure-prose "code" before persisting it
// as page content.
func HasMarkupSignal(text string) bool {
	return markupTagRe.MatchString(text)
}

package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/entity"
)

// MockConnector is an offline stand-in for the chat completion provider. It
// speaks the same stage protocol as the real model and always advances, so
// the full flow can be exercised without an API key.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

var (
	mockStageRe      = regexp.MustCompile(`Current stage: ([A-Z]+)\.`)
	mockTargetPageRe = regexp.MustCompile(`Generate the page named "([^"]+)"`)
)

func (m *MockConnector) Complete(ctx context.Context, messages []entity.ChatMessage) (string, error) {
	ctxzap.Info(ctx, "[MOCK] chat completion", zap.Int("message_count", len(messages)))
	return m.reply(messages), nil
}

func (m *MockConnector) StreamComplete(ctx context.Context, messages []entity.ChatMessage, onChunk func(chunk string)) (string, error) {
	ctxzap.Info(ctx, "[MOCK] streaming chat completion", zap.Int("message_count", len(messages)))
	reply := m.reply(messages)
	onChunk(reply)
	return reply, nil
}

func (m *MockConnector) reply(messages []entity.ChatMessage) string {
	stage := "COLLECTING"
	targetPage := ""
	for _, msg := range messages {
		if msg.Role != entity.ChatRoleSystem {
			continue
		}
		if match := mockStageRe.FindStringSubmatch(msg.Content); match != nil {
			stage = match[1]
		}
		if match := mockTargetPageRe.FindStringSubmatch(msg.Content); match != nil {
			targetPage = match[1]
		}
	}

	switch stage {
	case "COLLECTING":
		return `I have enough to work with: a small product landing site with a home
page and a contact page. (MOCK)
<STAGE:COLLECTING><NEXT_STAGE:ANALYZING>`

	case "ANALYZING":
		return "Here is the requirement analysis. (MOCK)\n" +
			"```requirement analysis result\n" +
			"Goal: a product landing site.\n" +
			"Users: prospective customers.\n" +
			"Requirements: present the product, collect contact requests.\n" +
			"```\n" +
			"<STAGE:ANALYZING><NEXT_STAGE:DESIGNING>"

	case "DESIGNING":
		return "I propose this page structure. (MOCK)\n" +
			"```json\n" +
			`[{"name":"Home","path":"index.html","description":"Landing page"},` + "\n" +
			` {"name":"Contact","path":"contact.html","description":"Contact form"}]` + "\n" +
			"```\n" +
			"<STAGE:DESIGNING><NEXT_STAGE:GENERATING>"

	case "GENERATING":
		if targetPage == "" {
			targetPage = "Home"
		}
		return fmt.Sprintf("Here is the page. (MOCK)\n```html\n"+
			"<!DOCTYPE html>\n<html><head><title>%s</title></head>"+
			"<body><h1>%s</h1><p>Mock content.</p></body></html>\n```\n"+
			"<STAGE:GENERATING><CURRENT_PAGE:%s>", targetPage, targetPage, targetPage)

	case "COMPLETED":
		return `The prototype is finished. Ask me for changes if you want any. (MOCK)
<STAGE:COMPLETED>`

	case "EDITING":
		page := lastMentionedPage(messages)
		return fmt.Sprintf("Done, I applied the change. (MOCK)\n```html\n"+
			"<!DOCTYPE html>\n<html><head><title>%s</title></head>"+
			"<body><h1>%s</h1><p>Revised mock content.</p></body></html>\n```\n"+
			"<STAGE:EDITING><MODIFIED_PAGE:%s>", page, page, page)

	default:
		return "<STAGE:COLLECTING>What would you like to build?"
	}
}

// lastMentionedPage guesses which page an edit request is about. The mock has
// no real understanding, so it falls back to Home.
func lastMentionedPage(messages []entity.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != entity.ChatRoleUser {
			continue
		}
		content := strings.ToLower(messages[i].Content)
		for _, name := range []string{"Contact", "Home"} {
			if strings.Contains(content, strings.ToLower(name)) {
				return name
			}
		}
	}
	return "Home"
}

package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONBlock(t *testing.T) {
	payload := `[{"name":"Home","path":"/","description":"landing"}]`
	text := "Looks good.\n```json\n" + payload + "\n```\n<STAGE:Designing><NEXT_STAGE:Generating>"

	got, ok := ExtractJSONBlock(text)
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestExtractJSONBlockAbsent(t *testing.T) {
	for _, text := range []string{
		"",
		"no fences here",
		"```html\n<div></div>\n```",
		"```json\n{\"unterminated\": true",
	} {
		_, ok := ExtractJSONBlock(text)
		assert.False(t, ok, "text: %q", text)
	}
}

func TestExtractJSONBlockCaseInsensitiveTag(t *testing.T) {
	got, ok := ExtractJSONBlock("```JSON\n{\"a\":1}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, got)
}

func TestExtractJSONBlockFirstOfMany(t *testing.T) {
	got, ok := ExtractJSONBlock("```json\n{\"first\":1}\n```\n```json\n{\"second\":2}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"first":1}`, got)
}

func TestExtractCodeBlockPreferredLang(t *testing.T) {
	text := "```css\nbody{}\n```\n```html\n<html><body></body></html>\n```"
	got := ExtractCodeBlock(text, "html")
	assert.Equal(t, "<html><body></body></html>", got)
}

func TestExtractCodeBlockFallsBackToAnyFence(t *testing.T) {
	text := "intro\n```vue\n<template><div/></template>\n```"
	got := ExtractCodeBlock(text, "html")
	assert.Equal(t, "<template><div/></template>", got)
}

func TestExtractCodeBlockUnterminatedFence(t *testing.T) {
	text := "here you go\n```html\n<html><body>truncated"
	got := ExtractCodeBlock(text, "html")
	assert.Equal(t, "<html><body>truncated", got)
}

func TestExtractCodeBlockBareMarkupParagraph(t *testing.T) {
	text := "Sure, here is the page:\n\n<div class=\"hero\">hello</div>\n\nLet me know."
	got := ExtractCodeBlock(text, "html")
	assert.Equal(t, `<div class="hero">hello</div>`, got)
}

func TestExtractCodeBlockNothingFound(t *testing.T) {
	assert.Empty(t, ExtractCodeBlock("plain prose, no markup at all", "html"))
	assert.Empty(t, ExtractCodeBlock("", "html"))
}

func TestHasMarkupSignal(t *testing.T) {
	assert.True(t, HasMarkupSignal("<div>x</div>"))
	assert.True(t, HasMarkupSignal("<!DOCTYPE html><html></html>"))
	assert.True(t, HasMarkupSignal(`<img src="a.png"/>`))
	assert.False(t, HasMarkupSignal("x < y and y > z"))
	assert.False(t, HasMarkupSignal("plain prose"))
	assert.False(t, HasMarkupSignal(""))
}

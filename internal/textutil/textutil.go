// Package textutil holds small text helpers shared by the chat engine.
package textutil

import (
	"strings"
	"time"
)

const (
	thinkStart = "<think>"
	thinkEnd   = "</think>"
)

// RemoveThinkTag strips the first <think>...</think> block from text.
// Text without a complete block is returned unchanged. Leading newlines
// left behind by the removal are trimmed.
func RemoveThinkTag(text string) string {
	start := strings.Index(text, thinkStart)
	if start == -1 {
		return text
	}
	end := strings.Index(text[start+len(thinkStart):], thinkEnd)
	if end == -1 {
		return text
	}
	endOfEnd := start + len(thinkStart) + end + len(thinkEnd)
	out := text[:start] + text[endOfEnd:]
	return strings.TrimLeft(out, "\n")
}

// FormatTimestamp renders t as "[2006-01-02 Monday 15:04:05]", the prefix
// attached to user messages so the model sees when they were sent.
func FormatTimestamp(t time.Time) string {
	return "[" + t.Format("2006-01-02 Monday 15:04:05") + "]"
}

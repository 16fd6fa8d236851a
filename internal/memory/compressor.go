// Package memory implements the conversation-memory policy: the
// summarization-triggered compressor, the token-window limiter and the
// request-window builder.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/amrita-ai/amrita/internal/tokenizer"
	"github.com/amrita-ai/amrita/pkg/models"
)

// AbstractMessageName marks the system message holding the running
// summary, so recompression replaces it instead of stacking new ones.
const AbstractMessageName = "memory_abstract"

// SummaryPrompt is the system directive sent to the summarizer model.
const SummaryPrompt = "Summarize the following conversation preserving entities, decisions, and unresolved tasks. Reply with the summary text only."

// abstractSeparator joins successive summaries in the running abstract.
const abstractSeparator = "\n"

// Summarizer produces a plain-text summary of the given request
// messages. The chat layer backs it with the default adapter.
type Summarizer func(ctx context.Context, request []models.Message) (string, error)

// Compressor applies the length-triggered summarization policy.
type Compressor struct {
	Summarize Summarizer
	Logger    *slog.Logger
}

func (c *Compressor) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default().With("component", "memory")
}

// BuildSummaryRequest frames a victim window for the summarizer.
func BuildSummaryRequest(window []models.Message) []models.Message {
	var b strings.Builder
	for _, m := range window {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text())
	}
	return []models.Message{
		models.NewSystemMessage(SummaryPrompt),
		models.NewUserMessage(b.String()),
	}
}

// Compress runs the policy on mem. Let L be the non-system message
// count and Lmax the configured limit: when the abstract is enabled and
// L >= Lmax, the oldest ceil(p*Lmax) non-system messages are summarized
// into a single system message and the running abstract is extended.
// Tool-call groups are never split: the window grows to cover trailing
// tool messages. A summarization failure leaves the memory untouched;
// the policy retries next turn. Returns whether a compression happened.
func (c *Compressor) Compress(ctx context.Context, mem *models.MemoryModel, cfg models.LLMConfig) (bool, error) {
	lmax := cfg.MemoryLengthLimit
	if !cfg.EnableMemoryAbstract || lmax <= 0 {
		return false, nil
	}
	if mem.NonSystemCount() < lmax {
		return false, nil
	}
	if c.Summarize == nil {
		return false, fmt.Errorf("compressor has no summarizer")
	}

	victims := victimIndices(mem.Messages, victimCount(lmax, cfg.MemoryAbstractProportion))
	if len(victims) == 0 {
		return false, nil
	}

	window := make([]models.Message, len(victims))
	for i, idx := range victims {
		window[i] = mem.Messages[idx]
	}

	summary, err := c.Summarize(ctx, BuildSummaryRequest(window))
	if err != nil {
		c.logger().Warn("memory summarization failed, window kept intact", "error", err)
		return false, fmt.Errorf("summarize memory window: %w", err)
	}

	abstract := mem.Abstract
	if abstract != "" {
		abstract += abstractSeparator
	}
	abstract += summary

	mem.Messages = replaceVictims(mem.Messages, victims, models.Message{
		Role:    models.RoleSystem,
		Name:    AbstractMessageName,
		Content: abstract,
	})
	mem.Abstract = abstract
	c.logger().Info("memory window compressed",
		"removed", len(victims), "remaining", len(mem.Messages))
	return true, nil
}

func victimCount(lmax int, proportion float64) int {
	if proportion <= 0 || proportion > 1 {
		proportion = 0.5
	}
	return int(math.Ceil(proportion * float64(lmax)))
}

// victimIndices picks the oldest count non-system messages, extended to
// keep assistant+tool groups whole. The previous abstract message is
// always folded in so summaries do not stack.
func victimIndices(messages []models.Message, count int) []int {
	var out []int
	taken := 0
	for i, m := range messages {
		if m.Role == models.RoleSystem {
			if m.Name == AbstractMessageName {
				out = append(out, i)
			}
			continue
		}
		if taken < count {
			out = append(out, i)
			taken++
			continue
		}
		// Window is full: absorb tool messages completing the last group.
		if m.Role == models.RoleTool && len(out) > 0 && out[len(out)-1] == i-1 {
			out = append(out, i)
			continue
		}
		break
	}
	return out
}

func replaceVictims(messages []models.Message, victims []int, summary models.Message) []models.Message {
	victimSet := make(map[int]bool, len(victims))
	for _, idx := range victims {
		victimSet[idx] = true
	}
	out := make([]models.Message, 0, len(messages)-len(victims)+1)
	inserted := false
	for i, m := range messages {
		if victimSet[i] {
			if !inserted {
				out = append(out, summary)
				inserted = true
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

// TokenLimiter flags memories whose serialized text exceeds a token
// budget, prompting compression before the length trigger fires.
type TokenLimiter struct {
	Counter   tokenizer.Counter
	MaxTokens int
}

// Over reports whether the memory exceeds the token budget.
func (l TokenLimiter) Over(mem *models.MemoryModel) bool {
	if l.MaxTokens <= 0 || l.Counter == nil {
		return false
	}
	total := 0
	for _, m := range mem.Messages {
		total += l.Counter.Count(m.Text())
		if total > l.MaxTokens {
			return true
		}
	}
	return false
}

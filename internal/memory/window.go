package memory

import (
	"sort"

	"github.com/amrita-ai/amrita/pkg/models"
)

// Train is the system-prompt bundle supplied per turn: role to content.
// Non-system roles are allowed; the engine serializes them after the
// system entries.
type Train map[models.Role]string

// Messages renders the bundle deterministically, system entries first.
func (t Train) Messages() []models.Message {
	if len(t) == 0 {
		return nil
	}
	roles := make([]string, 0, len(t))
	for role := range t {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)

	out := make([]models.Message, 0, len(t))
	if content, ok := t[models.RoleSystem]; ok {
		out = append(out, models.NewSystemMessage(content))
	}
	for _, role := range roles {
		if models.Role(role) == models.RoleSystem {
			continue
		}
		out = append(out, models.Message{Role: models.Role(role), Content: t[models.Role(role)]})
	}
	return out
}

// BuildWindow assembles the request messages for one adapter call. With
// minimal context the window is the prompt bundle plus the last user
// message only; otherwise the full memory follows the bundle.
func BuildWindow(train Train, mem *models.MemoryModel, minimal bool) []models.Message {
	out := train.Messages()
	if !minimal {
		return append(out, mem.Messages...)
	}
	for i := len(mem.Messages) - 1; i >= 0; i-- {
		if mem.Messages[i].Role == models.RoleUser {
			return append(out, mem.Messages[i])
		}
	}
	return out
}

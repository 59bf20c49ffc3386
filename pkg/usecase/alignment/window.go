package alignment

import (
	"strings"

	"github.com/concordhq/concord/pkg/model"
)

// BuildQuery renders the last window turns of the conversation as
// "Label: content" lines in chronological order. Guardian turns and blank
// turns are dropped before the window is taken: the watcher's own alerts
// must never become input to its next judgment.
func BuildQuery(history []model.ConversationTurn, window int) string {
	turns := make([]model.ConversationTurn, 0, len(history))
	for _, t := range history {
		if t.Sender == model.SenderGuardian || strings.TrimSpace(t.Content) == "" {
			continue
		}
		turns = append(turns, t)
	}

	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t.Sender.Label())
		sb.WriteString(": ")
		sb.WriteString(t.Content)
	}
	return sb.String()
}

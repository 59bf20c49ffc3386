// Package reply generates the teammate's chat responses. It is deliberately
// cut off from the decision store: communication and organizational memory
// are separate evaluators, composed only by the caller running them
// concurrently.
package reply

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/concordhq/concord/pkg/adapter"
	"github.com/concordhq/concord/pkg/model"
)

// DefaultContextWindow is the number of trailing turns given to the reply
// model.
const DefaultContextWindow = 6

// Generator produces a teammate reply for the latest user message.
type Generator interface {
	Generate(ctx context.Context, message string, history []model.ConversationTurn) (string, error)
}

// UseCase implements Generator on Gemini. It receives conversation turns and
// nothing else; guardian turns are filtered out before the model sees them.
type UseCase struct {
	gemini adapter.Gemini

	contextWindow int
	callTimeout   time.Duration
}

type Option func(*UseCase)

// WithContextWindow overrides how many trailing turns the model sees.
func WithContextWindow(n int) Option {
	return func(uc *UseCase) {
		uc.contextWindow = n
	}
}

// WithCallTimeout overrides the completion call deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.callTimeout = d
	}
}

func New(gemini adapter.Gemini, opts ...Option) *UseCase {
	uc := &UseCase{
		gemini:        gemini,
		contextWindow: DefaultContextWindow,
		callTimeout:   15 * time.Second,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

const systemPrompt = `You are Alex, a pragmatic senior engineer at a startup, chatting with a colleague.
Reply in one or two short sentences, casual and constructive. Stay on the topic of the conversation.`

func (u *UseCase) Generate(ctx context.Context, message string, history []model.ConversationTurn) (string, error) {
	contents := buildContents(message, history, u.contextWindow)

	callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
	}

	resp, err := u.gemini.GenerateContent(callCtx, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate reply")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("empty reply from completion service")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text = part.Text
			break
		}
	}
	if text == "" {
		return "", goerr.New("reply contains no text")
	}

	return text, nil
}

// buildContents maps the trailing window of the conversation onto model
// roles: user turns speak as the user, teammate turns as the model. Guardian
// turns never reach the reply model.
func buildContents(message string, history []model.ConversationTurn, window int) []*genai.Content {
	turns := make([]model.ConversationTurn, 0, len(history))
	for _, t := range history {
		if t.Sender == model.SenderGuardian {
			continue
		}
		turns = append(turns, t)
	}
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, t := range turns {
		var role genai.Role = genai.RoleUser
		if t.Sender == model.SenderTeammate {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))
	return contents
}

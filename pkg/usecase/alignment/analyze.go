package alignment

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/concordhq/concord/pkg/model"
)

// Analyze runs the full chain for one utterance: window -> embed ->
// retrieve -> gate -> judge. The message is appended to the history as the
// latest user turn before the window is built.
//
// Failures surface as one of the model error sentinels; the pipeline does
// not retry. Retry and backoff policy belongs to the caller.
func (u *UseCase) Analyze(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error) {
	turns := append(slices.Clone(history), model.ConversationTurn{
		Sender:    model.SenderUser,
		Content:   message,
		Timestamp: time.Now(),
	})

	query := BuildQuery(turns, u.queryWindow)
	if strings.TrimSpace(query) == "" {
		// Nothing human-authored to judge.
		return model.AlignedResult(0), nil
	}

	embedCtx, cancelEmbed := context.WithTimeout(ctx, u.callTimeout)
	defer cancelEmbed()
	vector, err := u.gemini.Embedding(embedCtx, query)
	if err != nil {
		return nil, goerr.Wrap(model.ErrEmbeddingService, "failed to embed conversation window",
			goerr.V("cause", err))
	}

	matches, err := u.repo.SearchDecisions(ctx, vector, u.topK)
	if err != nil {
		return nil, goerr.Wrap(model.ErrRetrieval, "decision search failed", goerr.V("cause", err))
	}

	// Empty store is a valid outcome, not an error.
	if len(matches) == 0 {
		return model.AlignedResult(0), nil
	}

	// Gate on the best candidate alone. Below the threshold the judge is
	// never invoked.
	top := matches[0]
	if top.Similarity < u.threshold {
		return model.AlignedResult(top.Similarity), nil
	}

	judgeCtx, cancelJudge := context.WithTimeout(ctx, u.callTimeout)
	defer cancelJudge()
	result, err := u.judge(judgeCtx, query, matches)
	if err != nil {
		return nil, err
	}

	// meeting_date and similarity come from retrieval, never from the
	// completion service.
	result.MeetingDate = &top.MeetingDate
	result.Similarity = top.Similarity

	if err := result.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrJudgmentParse, "final result violates the schema",
			goerr.V("cause", err))
	}

	return result, nil
}

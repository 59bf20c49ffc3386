package alignment

import (
	"time"

	"github.com/concordhq/concord/pkg/adapter"
	"github.com/concordhq/concord/pkg/repository"
)

const (
	// DefaultThreshold is the minimum top similarity that justifies
	// invoking the judge. Validated misalignments score >= 0.80, so 0.75
	// leaves margin while rejecting incidental overlap.
	DefaultThreshold = 0.75

	// DefaultTopK is the number of candidate decisions handed to the judge.
	DefaultTopK = 4

	// DefaultQueryWindow is the number of trailing conversation turns
	// rendered into the retrieval query.
	DefaultQueryWindow = 4

	// DefaultCallTimeout bounds each external call (embedding, judgment).
	DefaultCallTimeout = 15 * time.Second
)

// UseCase runs the misalignment check: embed a conversation window, retrieve
// the nearest decisions, gate on the top similarity, and ask the judge for a
// verdict. It holds no per-conversation state; concurrent calls are
// independent.
type UseCase struct {
	repo   repository.Repository
	gemini adapter.Gemini

	threshold   float64
	topK        int
	queryWindow int
	callTimeout time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithThreshold overrides the similarity gate threshold.
func WithThreshold(t float64) Option {
	return func(uc *UseCase) {
		uc.threshold = t
	}
}

// WithTopK overrides how many candidates retrieval returns.
func WithTopK(k int) Option {
	return func(uc *UseCase) {
		uc.topK = k
	}
}

// WithQueryWindow overrides the conversation window size.
func WithQueryWindow(n int) Option {
	return func(uc *UseCase) {
		uc.queryWindow = n
	}
}

// WithCallTimeout overrides the per-call deadline for external services.
func WithCallTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.callTimeout = d
	}
}

// New creates a new alignment UseCase instance
func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:        repo,
		gemini:      gemini,
		threshold:   DefaultThreshold,
		topK:        DefaultTopK,
		queryWindow: DefaultQueryWindow,
		callTimeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

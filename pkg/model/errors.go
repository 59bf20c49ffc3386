package model

import "github.com/m-mizutani/goerr/v2"

// Failure kinds of the alignment pipeline. All are recoverable by the caller
// retrying the whole check; the pipeline itself never retries. Match with
// errors.Is.
var (
	// ErrEmbeddingService: the embedding call failed or timed out.
	ErrEmbeddingService = goerr.New("embedding service error")

	// ErrRetrieval: the decision store was unreachable or the index query
	// failed.
	ErrRetrieval = goerr.New("retrieval error")

	// ErrJudgmentParse: the completion response was not valid structured
	// data for the verdict schema. The whole response is discarded, never
	// partially trusted.
	ErrJudgmentParse = goerr.New("judgment parse error")

	// ErrJudgmentService: the completion call failed or timed out.
	ErrJudgmentService = goerr.New("judgment service error")
)

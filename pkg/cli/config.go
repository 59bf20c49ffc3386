package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/concordhq/concord/pkg/adapter"
	"github.com/concordhq/concord/pkg/repository"
	"github.com/concordhq/concord/pkg/usecase/alignment"
	"github.com/concordhq/concord/pkg/usecase/reply"
	"github.com/concordhq/concord/pkg/utils/logging"
)

// config holds configuration values
type config struct {
	// Repository
	databaseURL string
	dimension   int64

	// Adapters
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string

	// Pipeline
	threshold   float64
	topK        int64
	queryWindow int64
	replyWindow int64
	callTimeout time.Duration

	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database-url",
			Aliases:     []string{"d"},
			Usage:       "PostgreSQL connection URL (pgvector required)",
			Sources:     cli.EnvVars("CONCORD_DATABASE_URL", "DATABASE_URL"),
			Destination: &cfg.databaseURL,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Dimensionality of stored embedding vectors",
			Value:       1536,
			Sources:     cli.EnvVars("CONCORD_EMBEDDING_DIMENSION"),
			Destination: &cfg.dimension,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CONCORD_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Model used for judgment and replies",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("CONCORD_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Model used for embeddings",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("CONCORD_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// pipelineFlags returns flags tuning the alignment pipeline
func pipelineFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "threshold",
			Usage:       "Minimum top cosine similarity that invokes the judge",
			Value:       alignment.DefaultThreshold,
			Sources:     cli.EnvVars("CONCORD_SIMILARITY_THRESHOLD"),
			Destination: &cfg.threshold,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Number of candidate decisions handed to the judge",
			Value:       alignment.DefaultTopK,
			Sources:     cli.EnvVars("CONCORD_TOP_K"),
			Destination: &cfg.topK,
		},
		&cli.IntFlag{
			Name:        "query-window",
			Usage:       "Conversation turns used for the retrieval query",
			Value:       alignment.DefaultQueryWindow,
			Sources:     cli.EnvVars("CONCORD_QUERY_WINDOW"),
			Destination: &cfg.queryWindow,
		},
		&cli.IntFlag{
			Name:        "reply-window",
			Usage:       "Conversation turns given to the reply model",
			Value:       reply.DefaultContextWindow,
			Sources:     cli.EnvVars("CONCORD_REPLY_WINDOW"),
			Destination: &cfg.replyWindow,
		},
		&cli.DurationFlag{
			Name:        "call-timeout",
			Usage:       "Deadline for each external service call",
			Value:       alignment.DefaultCallTimeout,
			Sources:     cli.EnvVars("CONCORD_CALL_TIMEOUT"),
			Destination: &cfg.callTimeout,
		},
	}
}

// setupLogger installs the default logger at the configured level.
func (cfg *config) setupLogger() {
	logging.SetDefault(logging.New(cfg.logLevel, os.Stderr))
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (*repository.Postgres, error) {
	if cfg.databaseURL == "" {
		return nil, goerr.New("database-url is required")
	}

	repo, err := repository.NewPostgres(ctx, cfg.databaseURL, int(cfg.dimension))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
		adapter.WithEmbeddingDimension(int32(cfg.dimension)),
	)
}

// newAlignment wires the alignment pipeline from configured dependencies.
func (cfg *config) newAlignment(repo repository.Repository, gemini adapter.Gemini) *alignment.UseCase {
	return alignment.New(repo, gemini,
		alignment.WithThreshold(cfg.threshold),
		alignment.WithTopK(int(cfg.topK)),
		alignment.WithQueryWindow(int(cfg.queryWindow)),
		alignment.WithCallTimeout(cfg.callTimeout),
	)
}

// newReply wires the teammate reply generator. It never receives the
// repository.
func (cfg *config) newReply(gemini adapter.Gemini) *reply.UseCase {
	return reply.New(gemini,
		reply.WithContextWindow(int(cfg.replyWindow)),
		reply.WithCallTimeout(cfg.callTimeout),
	)
}

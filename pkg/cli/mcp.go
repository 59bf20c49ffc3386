package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/concordhq/concord/pkg/service/mcp"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), llmFlags(&cfg)...)
	flags = append(flags, pipelineFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the alignment check as an MCP tool over stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			return mcp.New(cfg.newAlignment(repo, gemini)).Run(ctx)
		},
	}
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/concordhq/concord/pkg/model"
)

func checkCommand() *cli.Command {
	var (
		cfg         config
		message     string
		historyPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "message",
			Aliases:     []string{"m"},
			Usage:       "The utterance to check",
			Required:    true,
			Destination: &message,
		},
		&cli.StringFlag{
			Name:        "history",
			Aliases:     []string{"i"},
			Usage:       "Path to a JSON file with prior conversation turns",
			Destination: &historyPath,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, pipelineFlags(&cfg)...)

	return &cli.Command{
		Name:  "check",
		Usage: "Run one alignment check and print the result as JSON",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			var history []model.ConversationTurn
			if historyPath != "" {
				raw, err := os.ReadFile(historyPath)
				if err != nil {
					return goerr.Wrap(err, "failed to read history file", goerr.V("path", historyPath))
				}
				if err := json.Unmarshal(raw, &history); err != nil {
					return goerr.Wrap(err, "failed to parse history file")
				}
				for _, t := range history {
					if err := t.Sender.Validate(); err != nil {
						return err
					}
				}
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			result, err := cfg.newAlignment(repo, gemini).Analyze(ctx, message, history)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to encode result")
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", encoded)
			return nil
		},
	}
}

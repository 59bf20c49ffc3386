package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/concordhq/concord/pkg/usecase/ingest"
)

func seedCommand() *cli.Command {
	var (
		cfg      config
		filePath string
		keep     bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Path to YAML meeting data file",
			Value:       "data/meetings.yaml",
			Sources:     cli.EnvVars("CONCORD_SEED_FILE"),
			Destination: &filePath,
		},
		&cli.BoolFlag{
			Name:        "keep",
			Usage:       "Keep existing data instead of clearing the store first",
			Destination: &keep,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Load meeting data into the store, embedding transcripts and decisions",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			f, err := os.Open(filePath)
			if err != nil {
				return goerr.Wrap(err, "failed to open meeting data file", goerr.V("path", filePath))
			}
			defer f.Close()

			file, err := ingest.Load(f)
			if err != nil {
				return err
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

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Start()
			defer sp.Stop()

			uc := ingest.New(repo, gemini, ingest.WithProgress(func(msg string) {
				sp.Suffix = " " + msg
			}))

			stats, err := uc.Ingest(ctx, file, !keep)
			if err != nil {
				return err
			}

			sp.Stop()
			fmt.Fprintf(c.Root().Writer, "Seed complete: %d meetings, %d decisions, %d participants\n",
				stats.Meetings, stats.Decisions, stats.Participants)
			return nil
		},
	}
}

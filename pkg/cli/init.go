package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func initCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "init",
		Usage: "Provision the database schema (tables, cascade keys, HNSW indexes)",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to provision schema")
			}

			fmt.Fprintf(c.Root().Writer, "Schema ready\n")
			return nil
		},
	}
}

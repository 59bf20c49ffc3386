package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "concord",
		Usage: "Organizational memory guard: checks conversations against recorded decisions",
		Commands: []*cli.Command{
			serveCommand(),
			initCommand(),
			seedCommand(),
			checkCommand(),
			chatCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

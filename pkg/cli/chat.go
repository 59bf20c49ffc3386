package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/concordhq/concord/pkg/model"
	"github.com/concordhq/concord/pkg/server"
	"github.com/concordhq/concord/pkg/utils/logging"
)

func chatCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), llmFlags(&cfg)...)
	flags = append(flags, pipelineFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation with the teammate, watched by the alignment guard",
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

			analyzer := cfg.newAlignment(repo, gemini)
			replier := cfg.newReply(gemini)

			sessions := server.NewSessionTracker()
			sessionID := uuid.New()
			var history []model.ConversationTurn

			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprintf(c.Root().Writer, "Chat session started. Type 'exit' to quit.\n")

			for {
				fmt.Fprintf(c.Root().Writer, "> ")
				if !scanner.Scan() {
					break
				}

				message := scanner.Text()
				if message == "exit" {
					break
				}
				if message == "" {
					continue
				}

				// The two pipelines run independently: the reply model
				// never sees the store, the guard never sees the reply.
				var (
					wg        sync.WaitGroup
					replyText string
					replyErr  error
					result    *model.AlignmentResult
					alignErr  error
				)
				wg.Add(2)
				go func() {
					defer wg.Done()
					replyText, replyErr = replier.Generate(ctx, message, history)
				}()
				go func() {
					defer wg.Done()
					result, alignErr = analyzer.Analyze(ctx, message, history)
				}()
				wg.Wait()

				history = append(history, model.ConversationTurn{
					Sender:    model.SenderUser,
					Content:   message,
					Timestamp: time.Now(),
				})

				if replyErr != nil {
					logging.Default().Error("reply generation failed", "error", replyErr)
				} else {
					fmt.Fprintf(c.Root().Writer, "Alex: %s\n", replyText)
					history = append(history, model.ConversationTurn{
						Sender:    model.SenderTeammate,
						Content:   replyText,
						Timestamp: time.Now(),
					})
				}

				if alignErr != nil {
					// Skip the check for this turn rather than break the
					// conversation.
					logging.Default().Warn("alignment check skipped", "error", alignErr)
					continue
				}

				state, resolved := sessions.Apply(sessionID, result.Aligned)
				switch {
				case state == server.StateMisaligned:
					alert := fmt.Sprintf("This goes against %q (%s): %s [severity: %s]",
						*result.RelevantDecision, *result.MeetingTitle, *result.Issue, *result.Severity)
					fmt.Fprintf(c.Root().Writer, "Guardian: %s\n", alert)
					history = append(history, model.ConversationTurn{
						Sender:    model.SenderGuardian,
						Content:   alert,
						Timestamp: time.Now(),
					})
				case resolved:
					fmt.Fprintf(c.Root().Writer, "Guardian: back on track.\n")
				}
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}

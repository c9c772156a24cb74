package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/lazyswap/internal/config"
	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
	"github.com/MikeSquared-Agency/lazyswap/internal/store"
)

type advancer interface {
	Advance(ctx context.Context, id, text string) (conversation.Reply, error)
}

func newChatCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the swap assistant in the terminal",
		Long: `Start a local conversation with the swap assistant. Conversation state is
kept in memory for the length of the session.

Type /reset to start over and /quit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// engine logs go to stderr so they stay out of the transcript
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			engine := newEngine(cfg, engineDeps{
				store:    store.NewMemory(),
				exchange: newExchange(cfg),
			}, logger)
			return chat(cmd.Context(), engine, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// chat runs a read-reply loop until /quit or end of input.
func chat(ctx context.Context, conv advancer, in io.Reader, out io.Writer) error {
	id := "cli:" + uuid.NewString()
	prompt := color.New(color.FgGreen, color.Bold)
	bot := color.New(color.FgCyan)

	if err := turn(ctx, conv, id, "/start", out, bot); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		prompt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		if err := turn(ctx, conv, id, text, out, bot); err != nil {
			return err
		}
	}
}

func turn(ctx context.Context, conv advancer, id, text string, out io.Writer, bot *color.Color) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	if !color.NoColor {
		s.Suffix = " thinking..."
		s.Start()
	}
	reply, err := conv.Advance(ctx, id, text)
	if !color.NoColor {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("advance conversation: %w", err)
	}
	bot.Fprintf(out, "\n%s\n\n", reply.Text)
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/PabloGalante/instructor-relay/internal/adapters/meeting"
	"github.com/PabloGalante/instructor-relay/internal/adapters/relayclient"
	"github.com/PabloGalante/instructor-relay/internal/adapters/tui"
	"github.com/PabloGalante/instructor-relay/internal/app/bot"
	"github.com/PabloGalante/instructor-relay/internal/app/chat"
	"github.com/PabloGalante/instructor-relay/internal/app/relay"
	"github.com/PabloGalante/instructor-relay/internal/domain"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

func runAsk(cmd *cobra.Command, args []string) error {
	// stdout carries the answer only
	observability.SetOutput(os.Stderr)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.WithoutCancel(ctx))

	out, err := st.relay.Ask(ctx, relay.AskInput{
		Question: domain.Question{
			Text:    questionArg(args),
			Context: &domain.QuestionContext{Source: "cli"},
		},
		Endpoint: "cli",
	})
	if err != nil {
		return err
	}

	if out.Answer.Text != nil {
		fmt.Fprintln(cmd.OutOrStdout(), *out.Answer.Text)
	}
	return nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	// the TUI owns the terminal
	observability.SetOutput(io.Discard)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client := relayclient.New(chatURL)
	conv := chat.NewConversation(client, "cli")
	model := tui.New(cmd.Context(), conv, client, cfg.AssistantName)

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}

func runBot(cmd *cobra.Command, _ []string) error {
	observability.SetOutput(os.Stderr)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	in, err := openTranscript(botTranscript)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer in.Close()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.WithoutCancel(ctx))

	tr := meeting.NewTranscript(in, cmd.OutOrStdout())
	tr.Pace = botPace

	return bot.New(tr, st.rooms).Run(ctx, botMeeting)
}

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/instructor-relay/internal/config"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

var (
	// v holds defaults, env and any flags bound below.
	v = config.New()

	chatURL        string
	botTranscript  string
	botMeeting     string
	botPace        time.Duration
	shutdownPeriod = 10 * time.Second

	rootCmd = &cobra.Command{
		Use:   "relay-api",
		Short: "Question relay for a virtual training instructor",
		Long: `relay-api answers questions from meeting sidebars, bots and chat clients.
It forwards each question to a remote conversational agent and falls back to
built-in topic answers when the agent is unconfigured, slow or failing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			observability.SetLevel(v.GetString("log_level"))
			return nil
		},
		RunE: runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay (default)",
		RunE:  runServe,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question through the agent gateway, without HTTP",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running relay in the terminal",
		RunE:  runChat,
	}

	botCmd = &cobra.Command{
		Use:   "bot",
		Short: "Replay a caption transcript through the meeting bot",
		RunE:  runBot,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("provider", "http", "agent provider: http, stream, openai, vertex or mock")
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("agent.provider", rootCmd.PersistentFlags().Lookup("provider"))

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().String("port", "8080", "listen port")
		c.Flags().Bool("classify", false, "only answer text that looks like a question on POST / and /ask")
		c.Flags().DurationVar(&shutdownPeriod, "shutdown-timeout", shutdownPeriod, "graceful shutdown budget")
	}

	chatCmd.Flags().StringVar(&chatURL, "url", "http://localhost:8080", "relay base URL")

	botCmd.Flags().StringVar(&botTranscript, "transcript", "", "caption file, one line per caption (- for stdin)")
	botCmd.Flags().StringVar(&botMeeting, "meeting", "", "meeting id, also used as the room id")
	botCmd.Flags().DurationVar(&botPace, "pace", 0, "delay between captions")
	_ = botCmd.MarkFlagRequired("transcript")
	_ = botCmd.MarkFlagRequired("meeting")

	rootCmd.AddCommand(serveCmd, askCmd, chatCmd, botCmd)
}

// loadConfig binds the invoked command's local flags and builds the config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	for key, name := range map[string]string{"port": "port", "relay.classify": "classify"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	return config.FromViper(v)
}

func questionArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func openTranscript(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/factory"
	"github.com/SahanaGS-tech/voice-agent-backend/voiceservice"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Talk to the agent by typing; one line per utterance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(os.Stderr, cfg)
			chat, err := factory.NewChatClient(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, err := voiceservice.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			conv, err := voiceservice.Console(ctx, deps, chat, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if conv == nil {
				return nil
			}
			body, err := json.MarshalIndent(conv.View(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", body)
			return nil
		},
	}
}

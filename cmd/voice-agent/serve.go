package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SahanaGS-tech/voice-agent-backend/voiceservice"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the streamable MCP endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return voiceservice.Run(cfg, newLogger(os.Stdout, cfg))
		},
	}
}

func newMCPCmd() *cobra.Command {
	var transport string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the booking tools to an MCP host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			switch transport {
			case "stdio":
				// stdout carries the protocol
				return voiceservice.RunStdio(cfg, newLogger(os.Stderr, cfg))
			case "http":
				return voiceservice.Run(cfg, newLogger(os.Stdout, cfg))
			default:
				return fmt.Errorf("unknown transport %q (stdio|http)", transport)
			}
		},
	}
	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "MCP transport: stdio or http")
	return cmd
}

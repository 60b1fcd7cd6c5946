package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI tool integration.

The server communicates over stdio and forwards every tool call to the
HTTP API of a running bot (API_ADDR).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdout carries the protocol
		log := cliLogger(cfg)
		defer log.Sync() //nolint:errcheck

		log.Info("mcp_server_starting", zap.String("version", version))
		if err := mcpserver.NewServer(client, version).Run(cmd.Context()); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.Flags().StringVar(&apiAddr, "api-addr", "", "address of the bot API (default API_ADDR)")
}

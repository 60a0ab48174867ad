package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Config holds the global CLI settings
type Config struct {
	ServerURL string
	UserID    string
	Username  string
}

var cfg Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lobbyctl",
		Short: "CLI client for the werewolf lobby server",
		Long: `lobbyctl speaks the lobby server's websocket protocol.

It can create and join sessions, inspect rosters, fetch assigned roles and
start games, which makes it handy for smoke-testing a running server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", "ws://localhost:3001/ws", "Server websocket URL")
	rootCmd.PersistentFlags().StringVar(&cfg.UserID, "user", "", "Stable user id (required for create/join/role)")
	rootCmd.PersistentFlags().StringVar(&cfg.Username, "name", "", "Display name (1-15 characters)")

	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newRoleCmd())
	rootCmd.AddCommand(newStartCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkos/inkd/internal/config"
	"github.com/inkos/inkd/internal/server"
)

// ServerConfig is set once by SetupRootCmd and shared by every subcommand
var ServerConfig *config.Config

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "inkd",
		Short: "inkd - workspace conversation and digest daemon",
		Long: `inkd manages AI conversations with automatic context rollover,
cached summarization, and a daily workspace digest.

Just type 'inkd' to start the server.`,
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}

	rootCmd.PersistentFlags().IntVar(&c.Port, "port", c.Port, "HTTP listen port")
	rootCmd.PersistentFlags().StringVar(&c.DataDir, "data-dir", c.DataDir, "data directory")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(DigestCmd())

	return rootCmd
}

// ServeCmd creates the serve command
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the inkd server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := server.Run(ctx, *ServerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

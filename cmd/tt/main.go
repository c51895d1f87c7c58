// Command tt is the tasktalk command-line client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tasktalk/internal/client"
	"tasktalk/internal/tui"
)

var (
	serverURL string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:           "tt",
	Short:         "Manage your tasks by talking to them",
	Long:          `tt is a client for a tasktalk server. Manage tasks directly, or describe changes in plain language with "tt ask" and "tt chat".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default from session, then "+client.DefaultServer+")")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding the session file (default $XDG_CONFIG_HOME/tasktalk)")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(lsCmd, addCmd, doneCmd, rmCmd)
	rootCmd.AddCommand(askCmd, suggestCmd, chatCmd, eventsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, tui.ErrorStyle.Render("Error: "+err.Error()))
		if client.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "Your session has expired; run `tt login`.")
		}
		os.Exit(1)
	}
}

func sessionDir() string {
	if configDir != "" {
		return configDir
	}
	return client.DefaultConfigDir()
}

// anonClient talks to the configured server without a session.
func anonClient() *client.Client {
	url := serverURL
	if url == "" {
		if s, err := client.LoadSession(sessionDir()); err == nil {
			url = s.Server
		}
	}
	return client.New(url, "")
}

// authedClient requires a saved session.
func authedClient() (*client.Client, error) {
	s, err := client.LoadSession(sessionDir())
	if err != nil {
		return nil, err
	}
	url := s.Server
	if serverURL != "" {
		url = serverURL
	}
	return client.New(url, s.Token), nil
}

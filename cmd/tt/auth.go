package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tasktalk/internal/client"
	"tasktalk/internal/tui"
)

var (
	authName     string
	authPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and save the session",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.RemoveSession(sessionDir()); err != nil {
			return fmt.Errorf("remove session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		u, err := c.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> on %s\n", u.Name, u.Email, c.BaseURL)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&authName, "name", "", "display name (prompted when empty)")
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&authPassword, "password", "", "password (read from stdin when empty)")
	}
}

func runRegister(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	name, err := valueOrPrompt(cmd, in, authName, "Name: ")
	if err != nil {
		return err
	}
	password, err := valueOrPrompt(cmd, in, authPassword, "Password: ")
	if err != nil {
		return err
	}

	c := anonClient()
	s, err := c.Register(cmd.Context(), args[0], name, password)
	if err != nil {
		return err
	}
	return saveSession(cmd, c, s)
}

func runLogin(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	password, err := valueOrPrompt(cmd, in, authPassword, "Password: ")
	if err != nil {
		return err
	}

	c := anonClient()
	s, err := c.Login(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}
	return saveSession(cmd, c, s)
}

func saveSession(cmd *cobra.Command, c *client.Client, s *client.Session) error {
	saved := &client.SavedSession{Server: c.BaseURL, Email: s.User.Email, Token: s.Token}
	if err := client.SaveSession(sessionDir(), saved); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.SuccessStyle.Render("Logged in as "+s.User.Email))
	return nil
}

func valueOrPrompt(cmd *cobra.Command, in *bufio.Reader, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(strings.TrimSuffix(prompt, ": ")))
	}
	return line, nil
}

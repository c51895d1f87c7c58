package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tasktalk/internal/client"
	"tasktalk/internal/tui"
)

var (
	eventsLimit  int
	suggestCount int
	suggestAdd   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <message...>",
	Short: "Describe changes in plain language",
	Long:  `Send one message to the assistant, e.g. tt ask "add call mom tomorrow and mark the report done".`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		return tui.Run(cmd.Context(), c)
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <goal...>",
	Short: "Propose tasks for a goal",
	Long:  `Ask the assistant for task titles, e.g. tt suggest "move to a new flat". Nothing is created unless --add is given.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSuggest,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show your recent activity log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		events, err := c.Events(cmd.Context(), eventsLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderEvents(events))
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "number of events")
	suggestCmd.Flags().IntVarP(&suggestCount, "count", "n", 5, "number of suggestions")
	suggestCmd.Flags().BoolVar(&suggestAdd, "add", false, "create every suggested task")
}

func runAsk(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	res, err := c.Ask(cmd.Context(), strings.Join(args, " "))
	if res != nil {
		fmt.Fprintln(cmd.OutOrStdout(), res.Reply)
	}
	return err
}

func runSuggest(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	titles, err := c.Suggest(cmd.Context(), strings.Join(args, " "), suggestCount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, title := range titles {
		if !suggestAdd {
			fmt.Fprintln(out, "  "+title)
			continue
		}
		if _, err := c.Create(cmd.Context(), client.NewTask{Title: title}); err != nil {
			return fmt.Errorf("add %q: %w", title, err)
		}
		fmt.Fprintln(out, tui.SuccessStyle.Render("+ ")+title)
	}
	return nil
}

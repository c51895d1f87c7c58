package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tasktalk/internal/client"
	"tasktalk/internal/tui"
	"tasktalk/pkg/task"
)

var (
	lsAll      bool
	lsDone     bool
	lsPriority string
	lsCategory string

	addPriority string
	addCategory string
	addDue      string
	addNotes    string
)

var lsCmd = &cobra.Command{
	Use:     "ls [search]",
	Aliases: []string{"list"},
	Short:   "List tasks",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runList,
}

var addCmd = &cobra.Command{
	Use:   "add <title...>",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var doneCmd = &cobra.Command{
	Use:   "done <id or title>",
	Short: "Toggle a task's completion",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDone,
}

var rmCmd = &cobra.Command{
	Use:     "rm <id or title>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsAll, "all", "a", false, "include completed tasks")
	lsCmd.Flags().BoolVar(&lsDone, "done", false, "only completed tasks")
	lsCmd.Flags().StringVarP(&lsPriority, "priority", "p", "", "LOW, MEDIUM or HIGH")
	lsCmd.Flags().StringVarP(&lsCategory, "category", "c", "", "category")

	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "LOW, MEDIUM or HIGH (default MEDIUM)")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category")
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "due date: YYYY-MM-DD, today or tomorrow")
	addCmd.Flags().StringVarP(&addNotes, "notes", "n", "", "description")
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	opts := client.ListOptions{Priority: lsPriority, Category: lsCategory}
	switch {
	case lsDone:
		done := true
		opts.Completed = &done
	case !lsAll:
		open := false
		opts.Completed = &open
	}
	if len(args) == 1 {
		opts.Query = args[0]
	}
	tasks, err := c.List(cmd.Context(), opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTasks(tasks, time.Now()))
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	t, err := c.Create(cmd.Context(), client.NewTask{
		Title:       strings.Join(args, " "),
		Description: addNotes,
		Priority:    addPriority,
		Category:    addCategory,
		DueDate:     addDue,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.SuccessStyle.Render(fmt.Sprintf("Added %q (%s)", t.Title, t.ID)))
	return nil
}

func runDone(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	t, err := resolveTask(cmd.Context(), c, strings.Join(args, " "))
	if err != nil {
		return err
	}
	t, err = c.Toggle(cmd.Context(), t.ID)
	if err != nil {
		return err
	}
	state := "open"
	if t.Completed {
		state = "done"
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.SuccessStyle.Render(fmt.Sprintf("Marked %q %s", t.Title, state)))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	t, err := resolveTask(cmd.Context(), c, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := c.Delete(cmd.Context(), t.ID); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.SuccessStyle.Render(fmt.Sprintf("Deleted %q", t.Title)))
	return nil
}

// resolveTask finds the one task ref names, by ID, exact title or unique partial title.
func resolveTask(ctx context.Context, c *client.Client, ref string) (*task.Task, error) {
	tasks, err := c.List(ctx, client.ListOptions{})
	if err != nil {
		return nil, err
	}
	return pickTask(tasks, ref)
}

func pickTask(tasks []task.Task, ref string) (*task.Task, error) {
	for i := range tasks {
		if tasks[i].ID == ref {
			return &tasks[i], nil
		}
	}
	matches := task.MatchExact(tasks, ref)
	if len(matches) == 0 {
		matches = task.MatchFuzzy(tasks, ref)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no task matches %q", ref)
	case 1:
		return &matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return nil, fmt.Errorf("%q matches %d tasks (%s); use an ID", ref, len(matches), strings.Join(ids, ", "))
	}
}

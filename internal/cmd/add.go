package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <title>...",
	Short: "Add a task to the todo column",
	Long: `Add a new task to the board. All arguments are joined into the title,
so quoting is optional:

  tasktickr add Fix the flaky login test`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	title := strings.TrimSpace(strings.Join(args, " "))
	before := s.engine.BoardSnapshot().Total()

	if err := s.engine.SubmitAddTask(title); err != nil {
		return err
	}
	if err := s.await(func() bool {
		return s.engine.BoardSnapshot().Total() > before
	}); err != nil {
		return err
	}

	for _, t := range s.engine.BoardSnapshot().Todo {
		if t.Title == title {
			fmt.Printf("Added %s  %s\n", shortID(t.ID), t.Title)
			break
		}
	}
	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <task> <title>...",
	Short: "Change a task's title",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func runRename(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	task, err := s.resolveTask(args[0])
	if err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(args[1:], " "))

	if err := s.engine.SubmitRename(task.ID, title); err != nil {
		return err
	}
	if err := s.await(func() bool {
		for _, t := range columnTasks(s.engine.BoardSnapshot(), task.Column) {
			if t.ID == task.ID && t.Title == title {
				return true
			}
		}
		return false
	}); err != nil {
		return err
	}

	fmt.Printf("Renamed %s  %s\n", shortID(task.ID), title)
	return nil
}

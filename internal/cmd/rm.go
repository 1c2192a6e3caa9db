package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <task>",
	Short: "Delete a task from the board",
	Long: `Delete a task by ID, ID prefix, or exact title. Deleting a completed
task does not give back the price it earned; only moving it out of done
does that.`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	task, err := s.resolveTask(args[0])
	if err != nil {
		return err
	}

	if err := s.engine.SubmitDelete(task.ID); err != nil {
		return err
	}
	if err := s.await(func() bool {
		for _, t := range columnTasks(s.engine.BoardSnapshot(), task.Column) {
			if t.ID == task.ID {
				return false
			}
		}
		return true
	}); err != nil {
		return err
	}

	fmt.Printf("Deleted %s  %s\n", shortID(task.ID), task.Title)
	return nil
}

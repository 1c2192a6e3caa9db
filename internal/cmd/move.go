package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlieadamsdev/tasktickr/internal/board"
)

var moveCmd = &cobra.Command{
	Use:   "move <task> <column>",
	Short: "Move a task to another column",
	Long: `Move a task to todo, today, or done. The task can be referenced by
ID, ID prefix, or exact title.

Moving a task into done completes it and raises the shared price by the
configured bonus. Moving it back out returns exactly the amount that
completion earned.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
	target, err := board.ParseColumn(args[1])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	task, err := s.resolveTask(args[0])
	if err != nil {
		return err
	}
	if task.Column == target {
		fmt.Printf("%s is already in %s\n", shortID(task.ID), target)
		return nil
	}

	priceBefore := s.engine.PriceSnapshot().Current

	if err := s.engine.SubmitMove(task.ID, target); err != nil {
		return err
	}
	if err := s.await(func() bool {
		for _, t := range columnTasks(s.engine.BoardSnapshot(), target) {
			if t.ID == task.ID {
				return true
			}
		}
		return false
	}); err != nil {
		return err
	}

	fmt.Printf("Moved %s to %s\n", shortID(task.ID), target)

	after := s.engine.PriceSnapshot().Current
	if !after.Equal(priceBefore) {
		fmt.Printf("Price: %s -> %s (%s)\n",
			priceBefore.StringFixed(2), after.StringFixed(2),
			formatDelta(after.Sub(priceBefore)))
	}
	return nil
}

func columnTasks(snap board.Snapshot, col board.Column) []board.Task {
	switch col {
	case board.ColumnToday:
		return snap.Today
	case board.ColumnDone:
		return snap.Done
	default:
		return snap.Todo
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlieadamsdev/tasktickr/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show price movements within a time window",
	Long: `List the price after each completion or un-completion within the
selected window. Windows: 1d (day), 1w (week), 1m (month).`,
	RunE: runHistory,
}

var historyWindow string

func init() {
	historyCmd.Flags().StringVarP(&historyWindow, "window", "w", "1d", "time window: 1d, 1w, or 1m")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	window, err := ledger.ParseWindow(historyWindow)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	points, err := s.engine.PriceHistory(cmd.Context(), window)
	if err != nil {
		return fmt.Errorf("querying history: %w", err)
	}
	if len(points) == 0 {
		fmt.Printf("No price movements in the last %s\n", window)
		return nil
	}

	for _, p := range points {
		fmt.Printf("%s  $%s\n", p.Timestamp.Format("2006-01-02 15:04:05"), p.Price)
	}
	return nil
}

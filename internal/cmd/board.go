package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the board and the current price",
	RunE:  runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Println(renderBoard(s.engine.BoardSnapshot(), terminalWidth()))
	fmt.Println(renderPrice(s.engine.PriceSnapshot()))
	return nil
}

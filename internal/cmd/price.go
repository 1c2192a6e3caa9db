package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show the current price and its last movement",
	RunE:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)
}

func runPrice(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ps := s.engine.PriceSnapshot()
	fmt.Println(renderPrice(ps))
	if !ps.Delta.IsZero() && ps.Previous.IsPositive() {
		pct := ps.Delta.Div(ps.Previous).Mul(decimal.NewFromInt(100))
		fmt.Printf("Previous: $%s (%s%%)\n", ps.Previous.StringFixed(2), pct.StringFixed(2))
	}
	return nil
}

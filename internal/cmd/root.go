package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/charlieadamsdev/tasktickr/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tasktickr",
	Short: "Task board with a shared completion-driven price",
	Long: `Tasktickr tracks tasks across todo, today, and done columns and
derives a shared price from completions: finishing a task raises the
price by a bonus percentage, un-finishing it gives that exact amount
back. Every command operates on the same durable board, so concurrent
observers converge on identical state.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/tasktickr/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database file (overrides store.path)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/tasktickr")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TASKTICKR")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TASKTICKR_PRICE_BONUS_PERCENT for price.bonus_percent
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

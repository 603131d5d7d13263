// dyttoctl inspects levels, previews analysis and quests, and runs maintenance
// against the configured store.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	seed       uint64
)

var rootCmd = &cobra.Command{
	Use:   "dyttoctl",
	Short: "Dytto relationship progression admin tool",
	Long: `dyttoctl works with the leveling, analysis and quest engines directly.

Available commands:
  levels        - Print the level table
  analyze       - Analyze a piece of text and preview its XP gain
  quest         - Preview a generated quest for a relationship
  expire-quests - Expire overdue quests in the configured store`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "random seed for deterministic output (0 = clock)")

	rootCmd.AddCommand(levelsCmd, analyzeCmd, questCmd, expireQuestsCmd)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/history"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON string")
	historyCmd.Flags().Bool("clear", false, "Forget every resolved content id")
	historyCmd.Flags().StringP("remove", "r", "", "Forget a single content id")
	historyCmd.MarkFlagsMutuallyExclusive("clear", "remove", "json")

	historyCmd.SetOut(os.Stdout)
}

// historyCmd lists the last resolution of every content id.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the last resolved mirror of every content id",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("clear")) {
			handleErr(history.Clear())
			fmt.Printf("%s history cleared\n", style.Fg(color.Green)(icon.Get(icon.Success)))
			return
		}

		if id := lo.Must(cmd.Flags().GetString("remove")); id != "" {
			handleErr(history.Remove(id))
			fmt.Printf("%s forgot %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Purple)(id))
			return
		}

		records, err := history.List()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			lo.Must0(json.NewEncoder(cmd.OutOrStdout()).Encode(records))
			return
		}

		if len(records) == 0 {
			cmd.Println(style.Faint("No history yet"))
			return
		}

		for _, record := range records {
			cmd.Printf("%s %s\n", icon.Get(icon.Link), record)
			cmd.Printf("  %s %s\n", style.Faint("Stream"), record.StreamURL)
			cmd.Printf("  %s %s\n", style.Faint("Resolved"), util.Quantify(record.Resolutions, "time", "times"))
		}
	},
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/util"
	"github.com/anisan-cli/anistream/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget is an artifact that "clear" can remove.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"history file", "history", mo.Some("s"), where.History},
	{"logs directory", "logs", mo.Some("l"), where.Logs},
	{"temp directory", "temp", mo.Some("t"), where.Temp},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if short, ok := target.argShort.Get(); ok {
			clearCmd.Flags().BoolP(target.argLong, short, false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

// clearCmd removes persisted artifacts.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached and persisted application artifacts",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			anyCleared = true
			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Stall), target.name))
			err := util.Delete(target.location())
			erase()

			if err != nil && !errors.Is(err, os.ErrNotExist) {
				handleErr(err)
			}
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}

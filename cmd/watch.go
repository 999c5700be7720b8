package cmd

import (
	"context"
	"errors"

	"github.com/anisan-cli/anistream/history"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/player"
	"github.com/anisan-cli/anistream/provider"
	"github.com/anisan-cli/anistream/session"
	"github.com/anisan-cli/anistream/tui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("language", "l", "", "Preferred audio language (e.g. en, es)")
	watchCmd.Flags().StringP("quality", "q", "", "Preferred quality (e.g. 4K, 1080p, 720p)")
	watchCmd.Flags().BoolP("play", "P", false, "Launch the external player once a stream resolves")
	watchCmd.Flags().BoolP("continue", "c", false, "Watch the most recently resolved content id")
}

// watchCmd runs the interactive console for one content id.
var watchCmd = &cobra.Command{
	Use:   "watch [id]",
	Short: "Resolve a content id in an interactive console and optionally play it",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var contentID string

		switch {
		case len(args) == 1:
			contentID = args[0]
		case lo.Must(cmd.Flags().GetBool("continue")):
			records, err := history.List()
			handleErr(err)
			if len(records) == 0 {
				handleErr(errors.New("history is empty"))
			}
			contentID = records[0].ContentID
		default:
			handleErr(errors.New("content id is required as an argument or --continue"))
		}

		var (
			play  = lo.Must(cmd.Flags().GetBool("play"))
			prefs = preferencesFor(
				contentID,
				lo.Must(cmd.Flags().GetString("language")),
				lo.Must(cmd.Flags().GetString("quality")),
			)
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Only the latest state matters to the console.
		prov := provider.FromConfig()
		go prov.CollectGarbage(ctx, viper.GetDuration(key.CacheMirrorsTTL))

		updates := make(chan session.State, 8)
		controller := newController(prov, func(state session.State) {
			select {
			case updates <- state:
			default:
			}
		})
		defer controller.Close()

		go controller.MonitorConnectivity(ctx, prov.Ping, viper.GetDuration(key.NetworkPingInterval))

		options := &tui.Options{
			ContentID:   contentID,
			Preferences: prefs,
			Controller:  controller,
			Updates:     updates,
		}

		if play {
			name := viper.GetString(key.PlaybackPlayer)
			CheckDependencies(name)

			p, err := player.New(name, player.Options{
				UserAgent: viper.GetString(key.SourceUserAgent),
			})
			handleErr(err)
			defer func() { _ = p.Close() }()

			options.Player = p
		}

		handleErr(tui.Run(ctx, options))
	},
}

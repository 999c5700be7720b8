// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/style"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, square)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Remember the resolved mirror of every content id")
	lo.Must0(viper.BindPFlag(key.HistorySaveOnResolve, rootCmd.PersistentFlags().Lookup("write-history")))

	rootCmd.PersistentFlags().String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")
	lo.Must0(viper.BindPFlag(key.CliMetricsAddr, rootCmd.PersistentFlags().Lookup("metrics-addr")))
}

// rootCmd defines the entry point for the anistream application.
var rootCmd = &cobra.Command{
	Use:   constant.App,
	Short: "Resolve content ids to a playable stream across failing mirrors",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Resolve content ids to a playable stream across failing mirrors"),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		serveMetrics(viper.GetString(key.CliMetricsAddr))
	},
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// serveMetrics exposes the Prometheus registry for the lifetime of the process.
func serveMetrics(addr string) {
	if addr == "" {
		return
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("serving metrics on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err)
		}
	}()
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}

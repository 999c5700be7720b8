package cmd

import (
	"os"
	"runtime"
	"strings"
	"text/template"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Display only the version string without metadata")
}

// versionCmd displays application version and build metadata.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version and build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		info := versionInfo{
			App:      constant.App,
			Version:  constant.Version,
			Go:       runtime.Version(),
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
			BuiltAt:  strings.TrimSpace(constant.BuiltAt),
			BuiltBy:  constant.BuiltBy,
			Revision: constant.Revision,
		}

		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), info))
	},
}

type versionInfo struct {
	App      string
	Version  string
	Go       string
	OS       string
	Arch     string
	BuiltAt  string
	BuiltBy  string
	Revision string
}

var versionTemplate = lo.Must(template.New("version").Funcs(template.FuncMap{
	"faint":   style.Faint,
	"bold":    style.Bold,
	"magenta": style.Fg(color.Purple),
}).Parse(`{{ magenta "▇▇▇" }} {{ magenta .App }}

  {{ faint "Version" }}         {{ bold .Version }}
  {{ faint "Git Commit" }}      {{ bold .Revision }}
  {{ faint "Build Date" }}      {{ bold .BuiltAt }}
  {{ faint "Built By" }}        {{ bold .BuiltBy }}
  {{ faint "Go" }}              {{ bold .Go }}
  {{ faint "Platform" }}        {{ bold .OS }}/{{ bold .Arch }}
`))

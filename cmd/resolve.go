package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"github.com/AlecAivazis/survey/v2"
	"github.com/anisan-cli/anistream/catalog"
	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/provider"
	"github.com/anisan-cli/anistream/session"
	"github.com/anisan-cli/anistream/source"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringP("language", "l", "", "Preferred audio language (e.g. en, es)")
	resolveCmd.Flags().StringP("quality", "q", "", "Preferred quality (e.g. 4K, 1080p, 720p)")
	resolveCmd.Flags().BoolP("pick", "p", false, "Choose language and quality from the discovered mirrors")
	resolveCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON string")

	lo.Must0(resolveCmd.RegisterFlagCompletionFunc("quality", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"4K", "1080p", "720p", "480p"}, cobra.ShellCompDirectiveNoFileComp
	}))

	resolveCmd.SetOut(os.Stdout)
}

// resolveCmd turns a content id into a playable stream url.
var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Resolve a content id to a playable stream url",
	Example: "  " + "anistream resolve 603 -l en -q 1080p" + "\n" +
		"  " + "anistream resolve 603 --pick --json",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			contentID = args[0]
			pick      = lo.Must(cmd.Flags().GetBool("pick"))
			asJson    = lo.Must(cmd.Flags().GetBool("json"))
			prov      = provider.FromConfig()
			prefs     = preferencesFor(
				contentID,
				lo.Must(cmd.Flags().GetString("language")),
				lo.Must(cmd.Flags().GetString("quality")),
			)
		)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if pick {
			var err error
			prefs, err = pickPreferences(ctx, prov.Source, contentID, prefs)
			handleErr(err)
		}

		var erase func()
		if !asJson {
			erase = util.PrintErasable(fmt.Sprintf("%s Resolving %s...", icon.Get(icon.Mirror), contentID))
		}

		controller := newController(prov, nil)
		defer controller.Close()

		state, err := controller.Resolve(ctx, contentID, prefs)
		if erase != nil {
			erase()
		}

		if asJson {
			lo.Must0(json.NewEncoder(cmd.OutOrStdout()).Encode(state))
			if err != nil {
				os.Exit(1)
			}
			return
		}

		handleErr(err)
		handleErr(stateTemplate.Execute(cmd.OutOrStdout(), state))
	},
}

// pickPreferences prompts for a language and a quality among the discovered mirrors.
func pickPreferences(ctx context.Context, src source.Source, contentID string, prefs session.Preferences) (session.Preferences, error) {
	mirrors, err := src.FindMirrors(ctx, contentID, prefs.Language)
	if err != nil {
		return prefs, err
	}

	cat := catalog.Build(mirrors)
	if cat.Len() == 0 {
		return prefs, source.ErrNoSources
	}

	languages := cat.Languages()
	defaultLanguage := languages[0]
	if matched, ok := cat.MatchLanguage(prefs.Language); ok {
		defaultLanguage = matched
	}

	languagePrompt := &survey.Select{
		Message: "Language",
		Options: languages,
		Default: defaultLanguage,
		Description: func(value string, _ int) string {
			return util.Quantify(len(lo.FlatMap(cat.QualitiesFor(value), func(q string, _ int) []source.Mirror {
				return cat.Bucket(value, q)
			})), "mirror", "mirrors")
		},
	}
	if err := survey.AskOne(languagePrompt, &prefs.Language); err != nil {
		return prefs, err
	}

	qualities := cat.QualitiesFor(prefs.Language)
	defaultQuality := qualities[0]
	if lo.Contains(qualities, prefs.Quality) {
		defaultQuality = prefs.Quality
	}

	qualityPrompt := &survey.Select{
		Message: "Quality",
		Options: qualities,
		Default: defaultQuality,
		Description: func(value string, _ int) string {
			return util.Quantify(len(cat.Bucket(prefs.Language, value)), "mirror", "mirrors")
		},
	}
	if err := survey.AskOne(qualityPrompt, &prefs.Quality); err != nil {
		return prefs, err
	}

	return prefs, nil
}

var stateTemplate = lo.Must(template.New("state").Funcs(template.FuncMap{
	"faint":  style.Faint,
	"bold":   style.Bold,
	"purple": style.Fg(color.Purple),
	"yellow": style.Fg(color.Yellow),
	"icon":   func(name string) string { return icon.Get(iconByName[name]) },
	"tier":   style.Tier,
	"gauge":  style.Score,
}).Parse(`{{ if .Backup }}{{ icon "backup" }}{{ else }}{{ icon "success" }}{{ end }} {{ purple .ContentID }}

  {{ faint "Stream" }}     {{ bold .StreamURL }}
{{- if .Backup }}
  {{ faint "Source" }}     {{ yellow "backup provider" }}
{{- else }}
  {{ faint "Mirror" }}     {{ .Mirror.ManifestRef }} {{ faint (printf "%d seeds" .Mirror.Seeds) }}
  {{ faint "File" }}       {{ .Video.Name }}
{{- end }}
  {{ faint "Language" }}   {{ .Language }}
  {{ faint "Quality" }}    {{ .Quality }}
  {{ faint "Tier" }}       {{ tier .Tier }} {{ gauge .Score }} {{ faint (printf "%.2f" .Score) }}
{{- if .Exhausted }}
  {{ icon "warn" }} {{ yellow "every mirror failed once, retrying from the top" }}
{{- end }}
`))

var iconByName = map[string]icon.Icon{
	"success": icon.Success,
	"backup":  icon.Backup,
	"warn":    icon.Warn,
}

package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/anisan-cli/anistream/history"
	"github.com/anisan-cli/anistream/session"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolP("history", "H", false, "Generate the JSON Schema for \"history --json\" records")
}

// schemaCmd generates JSON schemas for the structured command outputs.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schemas for \"resolve --json\" and \"history --json\" outputs",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			name := t.Name()
			switch strings.ToLower(name) {
			case "state", "record", "mirror", "video":
				return filepath.Base(t.PkgPath()) + "." + name
			}

			return name
		}

		var schema *jsonschema.Schema

		switch {
		case lo.Must(cmd.Flags().GetBool("history")):
			schema = reflector.Reflect([]*history.Record{})
		default:
			schema = reflector.Reflect(&session.State{})
		}

		handleErr(json.NewEncoder(os.Stdout).Encode(schema))
	},
}

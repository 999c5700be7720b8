// Package icon renders the status symbols shown by the CLI and the console.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII, kaomoji,
// or Unicode squares depending on user preference.
package icon

import (
	"github.com/anisan-cli/anistream/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

// render picks the glyph for variant. Unknown variants render as plain.
func (d *iconDef) render(variant string) string {
	switch variant {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return d.plain
	}
}

// Get returns i in the configured variant, or "" for an unregistered icon.
func Get(i Icon) string {
	def, ok := icons[i]
	if !ok {
		return ""
	}
	return def.render(viper.GetString(key.IconsVariant))
}

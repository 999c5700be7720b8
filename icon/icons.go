package icon

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Mirror
	Backup
	Offline
	Stall
	Warn
	Link
)

var icons = map[Icon]*iconDef{
	Success: {
		emoji:   "✅",
		nerd:    "",
		plain:   "v",
		kaomoji: "(ᵔᴥᵔ)",
		squares: "🟩",
	},
	Fail: {
		emoji:   "❌",
		nerd:    "",
		plain:   "x",
		kaomoji: "(╯°□°）╯︵ ┻━┻",
		squares: "🟥",
	},
	Mirror: {
		emoji:   "🪞",
		nerd:    "",
		plain:   "*",
		kaomoji: "(・_・)",
		squares: "🟦",
	},
	Backup: {
		emoji:   "🛟",
		nerd:    "",
		plain:   "+",
		kaomoji: "(っ˘ω˘ς)",
		squares: "🟪",
	},
	Offline: {
		emoji:   "📴",
		nerd:    "",
		plain:   "-",
		kaomoji: "(×_×)",
		squares: "⬛",
	},
	Stall: {
		emoji:   "⏳",
		nerd:    "",
		plain:   "~",
		kaomoji: "(－_－) zzZ",
		squares: "🟧",
	},
	Warn: {
		emoji:   "⚠️",
		nerd:    "",
		plain:   "!",
		kaomoji: "(・・；)",
		squares: "🟨",
	},
	Link: {
		emoji:   "🔗",
		nerd:    "",
		plain:   ">",
		kaomoji: "(☞ﾟヮﾟ)☞",
		squares: "⬜",
	},
}

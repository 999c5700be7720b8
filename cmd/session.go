package cmd

import (
	"github.com/anisan-cli/anistream/history"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/netquality"
	"github.com/anisan-cli/anistream/provider"
	"github.com/anisan-cli/anistream/session"
	"github.com/spf13/viper"
)

// newController wires a session controller from the current configuration.
func newController(prov *provider.Provider, onChange func(session.State)) *session.Controller {
	opts := session.Options{
		Source:      prov.Source,
		Backup:      prov.Backup,
		Estimator:   netquality.New(netquality.WithDefaultBandwidth(viper.GetFloat64(key.NetworkDefaultBandwidth) * 1e6)),
		MaxAttempts: viper.GetInt(key.FailoverMaxAttempts),
		BaseDelay:   viper.GetDuration(key.FailoverBaseDelay),
		OnChange:    onChange,
	}

	if viper.GetBool(key.HistorySaveOnResolve) {
		opts.Record = history.Save
	}

	return session.New(opts)
}

// preferencesFor merges explicit flags over the last resolution of
// contentID, which in turn wins over configured defaults.
func preferencesFor(contentID, language, quality string) session.Preferences {
	prefs := session.Preferences{
		Language: viper.GetString(key.PlaybackLanguage),
		Quality:  viper.GetString(key.PlaybackQuality),
	}

	if record, ok, err := history.Last(contentID); err != nil {
		log.Warnf("reading history: %v", err)
	} else if ok && !record.Backup {
		prefs.Language = record.Language
		prefs.Quality = record.Quality
	}

	if language != "" {
		prefs.Language = language
	}

	if quality != "" {
		prefs.Quality = quality
	}

	return prefs
}

// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.App + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case time.Duration:
		return "duration"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.SourceBaseURL, "http://localhost:8090", "Base URL of the mirror discovery, manifest and stream service")
	register(key.SourceBackupURL, "", "Base URL of the backup provider.\nLeave empty to disable the backup fallback")
	register(key.SourceTimeout, 30*time.Second, "Timeout for a single mirror discovery or manifest request")
	register(key.SourceBackupTimeout, 60*time.Second, "Timeout for a backup provider request")
	register(key.SourceUserAgent, constant.UserAgent, "User-Agent header sent to mirror services")
	register(key.CacheMirrorsTTL, 5*time.Minute, "How long mirror discovery results stay cached")
	register(key.CacheManifestTTL, 10*time.Minute, "How long fetched manifests stay cached")
	register(key.FailoverMaxAttempts, 5, "Manifest fetch attempts before a mirror is marked as failed")
	register(key.FailoverBaseDelay, 5*time.Second, "Initial backoff between manifest fetch attempts.\nDoubles after every failure")
	register(key.PlaybackLanguage, "", "Preferred audio language (e.g. en, es).\nFalls back to the content's own language when empty")
	register(key.PlaybackQuality, "1080p", "Preferred quality label (e.g. 4K, 1080p, 720p, 480p)")
	register(key.PlaybackPlayer, "mpv", "External player used by \"watch --play\"")
	register(key.NetworkDefaultBandwidth, 5.0, "Bandwidth estimate in Mbps assumed before the first network sample")
	register(key.NetworkTLSFingerprint, false, "Use a browser TLS fingerprint for mirror requests")
	register(key.NetworkMaxConnsPerHost, 16, "Maximum concurrent connections per mirror host")
	register(key.NetworkPingInterval, 30*time.Second, "How often \"watch\" checks that the mirror service is reachable")
	register(key.HistorySaveOnResolve, true, "Remember the last successfully resolved mirror per content id")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliMetricsAddr, "", "Address to expose Prometheus metrics on (e.g. :9090).\nDisabled when empty")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))

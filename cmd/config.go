package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/where"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func errUnknownKey(key string) error {
	closest := lo.MinBy(lo.Keys(config.Default), func(a string, b string) bool {
		return levenshtein.Distance(key, a) < levenshtein.Distance(key, b)
	})
	msg := fmt.Sprintf(
		"unknown key %s, did you mean %s?",
		style.Fg(color.Red)(key),
		style.Fg(color.Yellow)(closest),
	)

	return errors.New(msg)
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

func configFilePath() string {
	return filepath.Join(where.Config(), constant.App+".toml")
}

// keyArg reads the key from the first argument or the --key flag and
// exits on unknown keys.
func keyArg(cmd *cobra.Command, args []string) config.Field {
	key := lo.Must(cmd.Flags().GetString("key"))
	if len(args) >= 1 {
		key = args[0]
	}

	if key == "" {
		handleErr(errors.New("key is required as an argument or --key flag"))
	}

	field, ok := config.Default[key]
	if !ok {
		handleErr(errUnknownKey(key))
	}

	return field
}

// parseValue converts raw into the type of the field's default value.
func parseValue(field config.Field, raw []string) (any, error) {
	switch field.Value.(type) {
	case []string:
		return raw, nil
	case string:
		return raw[0], nil
	case int:
		parsed, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid integer value: %s", raw[0])
		}
		return parsed, nil
	case float64:
		parsed, err := strconv.ParseFloat(raw[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value: %s", raw[0])
		}
		return parsed, nil
	case time.Duration:
		parsed, err := time.ParseDuration(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid duration value: %s", raw[0])
		}
		return parsed, nil
	case bool:
		parsed, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value: %s", raw[0])
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("unsupported type for key %s", field.Key)
	}
}

// writeConfig persists viper's state, creating the file when missing.
func writeConfig() error {
	err := viper.WriteConfig()

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfig()
	}

	return err
}

func printDone(format string, args ...any) {
	fmt.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), fmt.Sprintf(format, args...))
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// configCmd serves as the parent command for managing application configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application configuration settings and defaults",
}

func init() {
	configCmd.AddCommand(configInfoCmd)
	configInfoCmd.Flags().StringSliceP("key", "k", []string{}, "Specify the configuration keys to retrieve information for")
	configInfoCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON string")
	_ = configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)

	configInfoCmd.SetOut(os.Stdout)
}

// configInfoCmd displays metadata and descriptions for configuration fields.
var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display detailed information and descriptions for specified configuration fields",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			keys   = lo.Must(cmd.Flags().GetStringSlice("key"))
			asJson = lo.Must(cmd.Flags().GetBool("json"))
			fields = lo.Values(config.Default)
		)

		if len(keys) > 0 {
			fields = lo.Map(keys, func(key string, _ int) config.Field {
				field, ok := config.Default[key]
				if !ok {
					handleErr(errUnknownKey(key))
				}
				return field
			})
		}

		sort.Slice(fields, func(i, j int) bool {
			return fields[i].Key < fields[j].Key
		})

		if asJson {
			lo.Must0(json.NewEncoder(cmd.OutOrStdout()).Encode(fields))
			return
		}

		for i, field := range fields {
			cmd.Print(field.Pretty())

			if i < len(fields)-1 {
				cmd.Println()
				cmd.Println()
			}
		}
		cmd.Println()
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configSetCmd.Flags().StringP("key", "k", "", "The configuration key to update")
	configSetCmd.Flags().StringSliceP("value", "v", []string{}, "The new value to assign to the configuration key")
	_ = configSetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

// configSetCmd updates the value of a specific configuration key.
var configSetCmd = &cobra.Command{
	Use:               "set [key] [value]",
	Short:             "Update the value of a specified configuration key",
	Example:           "  anistream config set failover.base_delay 2s",
	Args:              cobra.MaximumNArgs(2),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		field := keyArg(cmd, args)

		raw := lo.Must(cmd.Flags().GetStringSlice("value"))
		if len(args) >= 2 {
			raw = args[1:]
		}

		if len(raw) == 0 {
			handleErr(errors.New("value is required as an argument or --value flag"))
		}

		v, err := parseValue(field, raw)
		handleErr(err)

		viper.Set(field.Key, v)
		handleErr(writeConfig())

		printDone("set %s to %s", style.Fg(color.Purple)(field.Key), style.Fg(color.Yellow)(fmt.Sprint(v)))
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configGetCmd.Flags().StringP("key", "k", "", "The specific configuration key to retrieve")
	_ = configGetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

// configGetCmd retrieves the current value of a configuration key.
var configGetCmd = &cobra.Command{
	Use:               "get [key]",
	Short:             "Retrieve the current value of a specified configuration key",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		field := keyArg(cmd, args)
		fmt.Println(viper.Get(field.Key))
	},
}

func init() {
	configCmd.AddCommand(configWriteCmd)
	configWriteCmd.Flags().BoolP("force", "f", false, "Forcefully overwrite the existing configuration file")
}

// configWriteCmd serializes the current in-memory configuration to disk.
var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Persist the current in-memory configuration to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configFilePath()

		if lo.Must(cmd.Flags().GetBool("force")) {
			err := filesystem.API().Remove(path)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				handleErr(err)
			}
		}

		handleErr(viper.SafeWriteConfig())
		printDone("wrote config to %s", path)
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}

// configDeleteCmd removes the configuration file.
var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Permanently remove the configuration file",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(configFilePath()))
		printDone("deleted config")
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)

	configResetCmd.Flags().StringP("key", "k", "", "The configuration key to restore to its default value")
	configResetCmd.Flags().BoolP("all", "a", false, "Restore all configuration settings to their factory defaults")
	configResetCmd.MarkFlagsMutuallyExclusive("key", "all")
	_ = configResetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

// configResetCmd restores configuration keys to their factory default values.
var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore a specified configuration key to its default value",
	PreRun: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("key") && !cmd.Flags().Changed("all") {
			handleErr(fmt.Errorf("either --key or --all must be set"))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("all")) {
			for key, field := range config.Default {
				viper.Set(key, field.Value)
			}
			handleErr(writeConfig())
			printDone("reset all config values")
			return
		}

		field := keyArg(cmd, nil)
		viper.Set(field.Key, field.Value)
		handleErr(writeConfig())

		printDone(
			"reset %s to default value %s",
			style.Fg(color.Purple)(field.Key),
			style.Fg(color.Yellow)(fmt.Sprint(field.Value)),
		)
	},
}

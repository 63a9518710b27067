package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/core/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change preferences",
	Long: `Preferences are stored in ~/.claude-grep/config.toml.

Keys:
  ` + strings.Join(config.Keys(), "\n  "),
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one preference, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a preference",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset [section]",
	Short: "Restore defaults for a section, or everything",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigReset,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd, configResetCmd)
}

func loadPreferences() (*config.Store, error) {
	store := config.NewStore(env.PreferencesPath())
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return store, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	store, err := loadPreferences()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		v, err := store.Value(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	}

	data, err := json.MarshalIndent(store.Get(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := loadPreferences()
	if err != nil {
		return err
	}
	if err := store.Set(args[0], args[1]); err != nil {
		return err
	}
	v, _ := store.Value(args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], v)
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	store, err := loadPreferences()
	if err != nil {
		return err
	}

	section := ""
	if len(args) == 1 {
		section = args[0]
	}
	if err := store.Reset(section); err != nil {
		return err
	}

	if section == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "All preferences reset to defaults.")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Preferences in [%s] reset to defaults.\n", section)
	}
	return nil
}

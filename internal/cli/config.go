package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/idealink/internal/config"
	"github.com/mrz1836/idealink/internal/output"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify IdeaLink configuration settings.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.idealink/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  idealink config init
  idealink config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: the file, with environment
overrides and command-line flags applied.`,
	Example: `  idealink config show
  idealink config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by its dotted key. 'idealink config show' lists
every key.`,
	Example: `  idealink config get settlement.exchange_rate
  idealink config get provider.mode`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by its dotted key. The value is validated and
the configuration file is updated immediately. Environment overrides are not
written to the file.`,
	Example: `  idealink config set settlement.exchange_rate 21.35
  idealink config set provider.mode devwallet
  idealink config set network.rpc http://127.0.0.1:8545`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	path := config.Path(cc.Cfg.Home)

	if _, err := os.Stat(path); err == nil && !configForce {
		return ilerr.WithSuggestion(
			ilerr.WithDetails(ilerr.ErrGeneral, map[string]string{"path": path}),
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", path),
		)
	}

	fresh := config.Defaults()
	fresh.Home = cc.Cfg.Home
	if err := config.Save(fresh, path); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, map[string]string{"path": path})
	}
	output.Successf(w, "Configuration written to %s", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	keys := config.Keys()
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := cc.Cfg.Get(key)
		if err != nil {
			return err
		}
		values[key] = value
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, values)
	}

	t := output.NewTable("KEY", "VALUE")
	for _, key := range keys {
		t.AddRow(key, values[key])
	}
	return t.Render(w)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	value, err := cc.Cfg.Get(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, map[string]string{"key": args[0], "value": value})
	}
	outln(w, value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	path := config.Path(cc.Cfg.Home)

	// Edit the file's contents, not the effective configuration, so
	// environment overrides never leak into the file.
	file, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}
	file.Home = cc.Cfg.Home

	if err := file.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := file.Validate(); err != nil {
		return err
	}
	if err := config.Save(file, path); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}

	value, _ := file.Get(args[0])
	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, map[string]string{"key": args[0], "value": value})
	}
	output.Successf(w, "%s = %s", args[0], value)
	return nil
}

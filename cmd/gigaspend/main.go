package main

import (
	"encoding/json"
	"fmt"
	"os"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	config := LoadConfig()

	// define root command
	rootCmd := &cobra.Command{
		Use:   "gigaspend",
		Short: "Assemble, sign and submit settlement transactions",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(0)
		},
	}

	// Add flags for each configuration option
	rootCmd.PersistentFlags().StringVar(&config.Gigaspend.AccountID, "account", config.Gigaspend.AccountID, "Account ID")
	rootCmd.PersistentFlags().StringVar(&config.Gigaspend.WalletFile, "wallet", config.Gigaspend.WalletFile, "Wallet snapshot file")
	rootCmd.PersistentFlags().StringVar(&config.Settlement.URL, "settlement-url", config.Settlement.URL, "Settlement service URL")
	rootCmd.PersistentFlags().StringVar(&config.Settlement.GroupID, "group", config.Settlement.GroupID, "Settlement group ID")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.Port, "webapi-port", config.WebAPI.Port, "Web API port")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.Bind, "webapi-bind", config.WebAPI.Bind, "Web API bind")
	rootCmd.PersistentFlags().StringVar(&config.Store.DBFile, "store-db-file", config.Store.DBFile, "Store DB file")
	rootCmd.PersistentFlags().BoolVar(&config.Log.Debug, "debug", config.Log.Debug, "Debug logging")
	// Bind flags to config fields
	viper.BindPFlags(rootCmd.PersistentFlags())

	var remote string

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the gigaspend server",
		Run: func(cmd *cobra.Command, args []string) {
			Server(config)
		},
	}

	assembleCmd := &cobra.Command{
		Use:   "assemble <params.json>",
		Short: "Build and sign a transaction from the wallet snapshot and print the envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Assemble(config, args[0])
		},
	}

	sendCmd := &cobra.Command{
		Use:   "send <request.json>",
		Short: "Build, sign and submit a transaction, locking the TXCers it spends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Send(config, args[0])
		},
	}

	locksCmd := &cobra.Command{
		Use:   "locks [account]",
		Short: "Print the TXCer lock table of an account (from a running server)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ShowLocks(config, accountArg(config, args), remote)
		},
	}

	unlockCmd := &cobra.Command{
		Use:   "unlock <account> <txcer-id>...",
		Short: "Release TXCer locks on a running server, replaying buffered updates",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Unlock(config, args[0], args[1:], remote)
		},
	}

	forceUnlockCmd := &cobra.Command{
		Use:   "forceunlock <account>",
		Short: "Release every TXCer lock of an account on a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ForceUnlock(config, args[0], remote)
		},
	}

	for _, c := range []*cobra.Command{locksCmd, unlockCmd, forceUnlockCmd} {
		c.Flags().StringVar(&remote, "remote", "", "admin API base URL (default from config)")
	}

	configCmd := &cobra.Command{
		Use:   "showconf",
		Short: "Print the config state and exit",
		Run: func(cmd *cobra.Command, args []string) {
			o, _ := json.MarshalIndent(config, ">", " ")
			fmt.Println(string(o))
			os.Exit(0)
		},
	}

	rootCmd.AddCommand(serverCmd, assembleCmd, sendCmd, locksCmd, unlockCmd, forceUnlockCmd, configCmd)

	// Execute the Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// LoadConfig finds the config file the way viper searches for it (name from
// GIGA_ENV, default "config") and loads it with defaults and env overrides.
func LoadConfig() giga.Config {
	configFileName, set := os.LookupEnv("GIGA_ENV")
	if set {
		viper.SetConfigName(configFileName)
	} else {
		viper.SetConfigName("config")
	}

	// Set config file name and search paths
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/gigaspend/")
	viper.AddConfigPath("$HOME/.gigaspend")

	path := ""
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "no config file found, using defaults: ", err)
	} else {
		path = viper.ConfigFileUsed()
	}

	config, err := giga.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("failed to load config %s: %s", path, err))
	}
	return config
}

func accountArg(c giga.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return c.Gigaspend.AccountID
}

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "summ-daemon",
	Short: "Per-user supervisor for long-lived agent CLI sessions",
	Long: `summ-daemon supervises a fleet of long-lived interactive agent CLI
sessions hosted in tmux, fusing multiplexer liveness with hook-reported
status into one effective view, and exposes control over a Unix socket.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.summ-daemon/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	viper.SetEnvPrefix("SUMMD")
	viper.AutomaticEnv()
}

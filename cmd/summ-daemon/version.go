package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HexSleeves/summ-daemon/internal/handler"
)

// Version is set via -ldflags "-X main.Version=..." at release build time.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the daemon version",
	Run: func(cmd *cobra.Command, args []string) {
		handler.DaemonVersion = Version
		fmt.Println(Version)
	},
}

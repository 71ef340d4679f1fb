package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"JamFM/config"
	"JamFM/logger"
	"JamFM/server"
)

var rootCmd = &cobra.Command{
	Use:   "jamfm",
	Short: "JamFM is a shared music playback service for voice channels.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func initLogging() {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
}

// Execute executes the root command.
func Execute() {
	cobra.OnInitialize(initLogging)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cmd

import (
	"github.com/spf13/cobra"

	"JamFM/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动JamFM服务器",
	Long:  `启动JamFM播放同步系统的HTTP服务器，提供API服务和WebSocket状态推送`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"JamFM/config"
	"JamFM/core/resolver"
	"JamFM/model"
)

// resolveCmd resolves a media URL without touching the catalog, useful for
// checking API credentials from the command line.
var resolveCmd = &cobra.Command{
	Use:   "resolve [url]",
	Short: "解析平台链接并打印曲目元数据",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		urlResolver := resolver.NewResolver(map[model.TrackSource]resolver.SourceResolver{
			model.SourceYouTube: resolver.NewYouTubeResolver(cfg.YouTubeAPIKey),
			model.SourceSpotify: resolver.NewSpotifyResolver(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := urlResolver.Resolve(ctx, args[0])
		if err != nil {
			log.Fatalf("解析失败: %v", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("输出失败: %v", err)
		}
		fmt.Println("解析完成。")
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

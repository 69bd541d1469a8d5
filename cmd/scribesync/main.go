package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scribesync/scribesync/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "scribesync",
	Short: "Text rewrite service with smart-table sync",
	Long:  "scribesync rewrites text through configurable LLM vendors and syncs the results to Feishu, DingTalk and WeCom smart tables.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetInfo())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

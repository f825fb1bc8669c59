package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of ideaforge",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ideaforge %s\n", GetVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

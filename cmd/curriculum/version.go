package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/curriculum"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of curriculum",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "curriculum version %s\n", strings.TrimSpace(curriculum.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

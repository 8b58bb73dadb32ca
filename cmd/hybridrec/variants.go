package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/hybridrec/config"
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List registered model variants",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range config.Variants() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)
}

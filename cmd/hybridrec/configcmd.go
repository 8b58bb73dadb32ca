package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/hybrid"
)

var showVariant string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration and the resolved model config",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, mc, err := modelConfig(appCfg, showVariant, "")
		if err != nil {
			return err
		}
		out, err := config.Dump(struct {
			App      *config.AppConfig `yaml:"app"`
			Resolved hybrid.Config     `yaml:"resolved_model"`
		}{appCfg, mc})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	configShowCmd.Flags().StringVar(&showVariant, "variant", "", "resolve this variant instead of model.variant")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

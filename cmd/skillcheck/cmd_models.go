package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models with availability and pricing",
		Args:  cobra.NoArgs,
		RunE:  modelsCommandE,
	}
}

func modelsCommandE(cmd *cobra.Command, args []string) error {
	deps, err := openDeps()
	if err != nil {
		return err
	}

	fmt.Printf("%-16s %-22s %-10s %-14s %s\n", "Key", "Model", "Provider", "$in/$out per M", "Status")
	for _, key := range deps.catalog.Keys() {
		cfg := deps.catalog[key]
		status := "ready"
		if os.Getenv(cfg.EnvKey) == "" {
			status = "needs " + cfg.EnvKey
		}
		pricing := fmt.Sprintf("$%.2f/$%.2f", cfg.CostIn, cfg.CostOut)
		fmt.Printf("%-16s %-22s %-10s %-14s %s\n", key, cfg.DisplayName, cfg.Provider, pricing, status)
	}
	return nil
}

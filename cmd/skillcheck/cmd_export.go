package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportSkillID string
	exportOutput  string
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a skill's results as a compressed archive",
		Long: `Bundle every stored result file for a skill into a zstd-compressed tar
archive, suitable for sharing or archiving a completed evaluation.`,
		Args: cobra.NoArgs,
		RunE: exportCommandE,
	}

	cmd.Flags().StringVar(&exportSkillID, "skill", "", "Skill whose results to export")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Archive path (default: <skill>-results.tar.zst)")
	cmd.MarkFlagRequired("skill")

	return cmd
}

func exportCommandE(cmd *cobra.Command, args []string) error {
	deps, err := openDeps()
	if err != nil {
		return err
	}

	out := exportOutput
	if out == "" {
		out = exportSkillID + "-results.tar.zst"
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	if err := deps.store.Export(f, exportSkillID); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	fmt.Printf("Exported results for %s to %s\n", exportSkillID, out)
	return nil
}

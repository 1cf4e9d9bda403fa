package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listSkillID string

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List skills, or one skill's versions and test documents",
		Args:  cobra.NoArgs,
		RunE:  listCommandE,
	}

	cmd.Flags().StringVar(&listSkillID, "skill", "", "Show versions and documents for one skill")

	return cmd
}

func listCommandE(cmd *cobra.Command, args []string) error {
	deps, err := openDeps()
	if err != nil {
		return err
	}

	if listSkillID != "" {
		return listSkillDetail(deps, listSkillID)
	}

	metas, err := deps.repo.Discover()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Printf("No skills found under %s\n", skillsDir)
		return nil
	}

	fmt.Printf("%-24s %-32s %-10s %s\n", "ID", "Name", "Versions", "Docs")
	for _, meta := range metas {
		fmt.Printf("%-24s %-32s %-10d %d\n", meta.SkillID, meta.DisplayName, meta.VersionCount, meta.DocCount)
	}
	return nil
}

func listSkillDetail(deps *appDeps, skillID string) error {
	meta, err := deps.repo.Meta(skillID)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", meta.DisplayName, meta.SkillID)
	if meta.Description != "" {
		fmt.Println(meta.Description)
	}
	fmt.Println()

	versions, err := deps.repo.Versions(skillID)
	if err != nil {
		return err
	}
	fmt.Println("Versions:")
	for _, version := range versions {
		marker := ""
		if meta.IsExternal(version) {
			marker = " [external]"
		}
		fmt.Printf("  %-16s %s%s\n", version, deps.repo.VersionTitle(skillID, version), marker)
	}
	fmt.Println()

	docs, err := deps.repo.Docs(skillID)
	if err != nil {
		return err
	}
	fmt.Println("Test documents:")
	for _, doc := range docs {
		key, err := deps.repo.AnswerKey(skillID, doc)
		switch {
		case err != nil:
			fmt.Printf("  %-16s invalid answer key: %v\n", doc, err)
		case key == nil:
			fmt.Printf("  %-16s no answer key\n", doc)
		default:
			fmt.Printf("  %-16s %d issue(s)\n", doc, len(key.Issues))
		}
	}
	return nil
}

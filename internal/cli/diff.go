package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/basalt-dev/sourcelens/internal/diff"
	"github.com/basalt-dev/sourcelens/internal/validate"
)

var diffDryRun bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Parse and apply unified diffs against the workspace",
}

var diffApplyCmd = &cobra.Command{
	Use:   "apply <patch-file>",
	Short: "Validate and apply a unified diff file to the workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiffApply,
}

func init() {
	diffApplyCmd.Flags().BoolVar(&diffDryRun, "dry-run", false, "validate and report changes without writing")
	diffCmd.AddCommand(diffApplyCmd)
	rootCmd.AddCommand(diffCmd)
}

func runDiffApply(cmd *cobra.Command, args []string) error {
	patchBytes, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read patch file: %w", err)
	}

	files, err := diff.Parse(string(patchBytes))
	if err != nil {
		return fmt.Errorf("parse diff: %w", err)
	}

	engine := diff.New(rootDir)
	validator := validate.NewService(rootDir)

	result := engine.Validate(files, validator)
	if !result.Valid {
		return fmt.Errorf("diff rejected: %s", result.Reason)
	}

	preview := diff.BuildPreview(files)
	for _, f := range preview.Files {
		fmt.Printf("%s: +%d -%d (%d hunks)\n", f.File, f.Changes.Additions, f.Changes.Deletions, f.Hunks)
	}

	applyResult := engine.Apply(files, diffDryRun)
	if !applyResult.Success {
		for _, fr := range applyResult.Files {
			if !fr.Success {
				fmt.Fprintf(os.Stderr, "%s: %s\n", fr.File, fr.Error)
			}
		}
		return fmt.Errorf("apply failed")
	}

	if diffDryRun {
		fmt.Println("dry run: no files written")
	} else {
		fmt.Printf("applied %d file(s)\n", len(applyResult.Files))
	}
	return nil
}

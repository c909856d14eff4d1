package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lessonforge/internal/paths"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Get or generate the learning path for a subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		course, _ := cmd.Flags().GetString("course")
		user, _ := cmd.Flags().GetString("user")

		if subject == "" {
			return fmt.Errorf("--subject is required")
		}
		if course == "" {
			course = subject
		}

		ctx := userContext(cmd)
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		path, err := a.pathMgr.GetOrGenerate(ctx, user, subject, course)

		var pending *paths.ErrStillGenerating
		if errors.As(err, &pending) {
			fmt.Printf("Generation already in progress; retry in %s.\n", pending.RetryAfter)
			return nil
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(path)
	},
}

func init() {
	pathCmd.Flags().String("subject", "", "Subject, e.g. \"Algebra\"")
	pathCmd.Flags().String("course", "", "Course name (defaults to the subject)")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lessonforge/internal/lessons"
	"lessonforge/internal/llm"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one or more lessons for a subject and topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		topic, _ := cmd.Flags().GetString("topic")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		tier, _ := cmd.Flags().GetString("tier")
		speed, _ := cmd.Flags().GetString("speed")
		count, _ := cmd.Flags().GetInt("count")
		contextText, _ := cmd.Flags().GetString("context")

		if subject == "" || topic == "" {
			return fmt.Errorf("--subject and --topic are required")
		}
		if count < 1 || count > 5 {
			return fmt.Errorf("--count must be between 1 and 5")
		}

		ctx := userContext(cmd)
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		req := lessons.Request{
			Subject:           subject,
			Topic:             topic,
			Difficulty:        lessons.Difficulty(difficulty),
			StructuredContext: contextText,
			Tier:              llm.Tier(tier),
			Speed:             llm.Speed(speed),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if count == 1 {
			lesson, _, err := a.service.Generate(ctx, req)
			if err != nil {
				return err
			}
			return enc.Encode(lesson)
		}

		reqs := make([]lessons.Request, count)
		for i := range reqs {
			reqs[i] = req
		}
		batch, err := a.service.GenerateBatch(ctx, reqs)
		if err != nil {
			return err
		}
		return enc.Encode(batch)
	},
}

func init() {
	generateCmd.Flags().String("subject", "", "Subject, e.g. \"Algebra\"")
	generateCmd.Flags().String("topic", "", "Topic, e.g. \"Algebra > Factoring\"")
	generateCmd.Flags().String("difficulty", "easy", "Difficulty: intro, easy, medium, hard")
	generateCmd.Flags().String("tier", "standard", "Pricing tier: standard or premium")
	generateCmd.Flags().String("speed", "fast", "Latency preference: fast or quality")
	generateCmd.Flags().Int("count", 1, "Number of lessons to generate (1-5)")
	generateCmd.Flags().String("context", "", "Structured learner context to personalize the lesson")
}

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize LLM spend from the usage ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		ctx := userContext(cmd)
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		since := time.Now().AddDate(0, 0, -days)
		rows, err := a.usage.SummarizeSince(ctx, since)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		if len(rows) == 0 {
			fmt.Printf("No usage recorded in the last %d day(s).\n", days)
			return nil
		}

		fmt.Printf("%-34s  %-7s  %-10s  %-10s  %s\n", "Model", "Calls", "In", "Out", "Cost")
		fmt.Println(strings.Repeat("─", 80))

		var total float64
		for _, r := range rows {
			model := r.Model
			if len(model) > 34 {
				model = model[:34]
			}
			fmt.Printf("%-34s  %-7d  %-10d  %-10d  $%.4f\n",
				model, r.Calls, r.InputTokens, r.OutputTokens, r.CostUSD)
			total += r.CostUSD
		}
		fmt.Println(strings.Repeat("─", 80))
		fmt.Printf("Total: $%.4f over %d day(s)\n", total, days)
		return nil
	},
}

func init() {
	usageCmd.Flags().Int("days", 7, "How many days back to summarize")
}

package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hqrms/hqrms/internal/domain/triage"
)

func classifyCmd() *cobra.Command {
	var (
		age      int
		avg      int
		position int
		doctors  int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "classify [symptoms...]",
		Short: "Classify symptoms and estimate the wait",
		Example: `  hqrms-server classify --age 70 "persistent cough"
  hqrms-server classify --position 3 --doctors 2 "chest pain"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if age < 0 {
				return fmt.Errorf("age must not be negative")
			}
			symptoms := strings.Join(args, " ")
			res := triage.Explain(symptoms, age)
			wait := triage.EstimateWait(position, avg, doctors)

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(struct {
					triage.Result
					WaitMinutes int `json:"wait_minutes"`
				}{res, wait})
			}
			fmt.Fprintf(out, "classification: %s\n", res.Classification)
			if len(res.Matched) > 0 {
				fmt.Fprintf(out, "matched: %s\n", strings.Join(res.Matched, ", "))
			}
			if res.AgeRule {
				fmt.Fprintf(out, "age over %d\n", triage.SpecialistAgeThreshold)
			}
			fmt.Fprintf(out, "estimated wait: %s\n", formatWait(wait))
			return nil
		},
	}
	cmd.Flags().IntVar(&age, "age", 0, "patient age in years")
	cmd.Flags().IntVar(&position, "position", 1, "queue position")
	cmd.Flags().IntVar(&avg, "avg", 15, "average consultation minutes")
	cmd.Flags().IntVar(&doctors, "doctors", 1, "available doctors")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func formatWait(minutes int) string {
	if minutes == triage.WaitUnknown {
		return "unknown (no doctor available)"
	}
	return strconv.Itoa(minutes) + " min"
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Amr-9/saylrun/internal/httpclient"
	"github.com/Amr-9/saylrun/internal/report"
	"github.com/Amr-9/saylrun/internal/scenario"
	"github.com/Amr-9/saylrun/pkg/models"
)

func newRunCmd(ctx context.Context) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "run [scenario-name]",
		Short: "Execute a scenario once and print its result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var scenarioArg string
			if len(args) == 1 {
				scenarioArg = args[0]
			}

			r, err := resolveScenario(cmd, scenarioArg)
			if err != nil {
				return err
			}

			client := httpclient.NewClient(r.host)
			eng := scenario.New(client, r.host)

			sc := r.scenario
			if len(r.feeders) > 0 {
				sc.Variables = make(map[string]any, len(r.scenario.Variables))
				for k, v := range r.scenario.Variables {
					sc.Variables[k] = v
				}
				for name, f := range r.feeders {
					for k, v := range f.Next() {
						sc.Variables[name+"."+k] = v
					}
				}
			}

			result := eng.Execute(ctx, sc, func(name string, idx, total int) {
				fmt.Printf("[%d/%d] %s\n", idx, total, name)
			})

			rep := report.BuildScenarioReport(r.project, result)
			fmt.Println(report.RenderConsole(rep))

			if r.repo != nil {
				path, err := r.repo.SaveReport(r.project, rep, rep.CreatedAt)
				if err != nil {
					return fmt.Errorf("save report: %w", err)
				}
				fmt.Printf("report saved to %s\n", path)
			} else if output != "" {
				if err := writeJSONReport(output, rep); err != nil {
					return err
				}
				fmt.Printf("report saved to %s\n", output)
			}

			if result.Outcome != models.OutcomeSuccess {
				return fmt.Errorf("scenario %q finished with outcome %s", sc.Name, result.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "path to write the JSON report when not using --project")
	return cmd
}

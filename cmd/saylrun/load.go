package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Amr-9/saylrun/internal/httpclient"
	"github.com/Amr-9/saylrun/internal/loadtest"
	"github.com/Amr-9/saylrun/internal/report"
	"github.com/Amr-9/saylrun/internal/scenario"
	"github.com/Amr-9/saylrun/pkg/models"
)

func newLoadCmd(ctx context.Context) *cobra.Command {
	var htmlPath string
	var output string

	cmd := &cobra.Command{
		Use:   "load [scenario-name]",
		Short: "Run a scenario repeatedly against a target transactions-per-second rate",
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
			if r.scenario.Load == nil {
				return fmt.Errorf("scenario %q has no load configuration", r.scenario.Name)
			}

			if err := httpclient.Preflight(ctx, r.host.BaseURL, r.host.Timeout); err != nil {
				return fmt.Errorf("preflight check failed: %w", err)
			}

			client := httpclient.NewClient(r.host)
			eng := scenario.New(client, r.host)

			result, err := loadtest.Run(ctx, eng, r.feeders, r.scenario, *r.scenario.Load, func(tick models.LoadMetrics) {
				fmt.Printf("t=%.0fs tps=%.1f active=%d success=%d failure=%d\n",
					tick.ElapsedSeconds, tick.CurrentTPS, tick.ActiveInFlight, tick.Success, tick.Failure)
			})
			if err != nil {
				return fmt.Errorf("run load test: %w", err)
			}
			result.TestName = r.scenario.Name

			rep := report.BuildLoadReport(r.project, result)
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

			if htmlPath != "" {
				if err := report.GenerateHTML(rep, htmlPath, rep.CreatedAt); err != nil {
					return fmt.Errorf("generate HTML report: %w", err)
				}
				fmt.Printf("interactive report saved to %s\n", htmlPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "path to write an interactive Chart.js HTML dashboard")
	cmd.Flags().StringVar(&output, "output", "", "path to write the JSON report when not using --project")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Amr-9/saylrun/internal/config"
	"github.com/Amr-9/saylrun/internal/feeder"
	"github.com/Amr-9/saylrun/internal/repository"
	"github.com/Amr-9/saylrun/pkg/models"
)

// resolved bundles everything a run/load/debug subcommand needs to
// execute a scenario: the scenario itself, the host it targets, and
// any data feeders its steps were fed by.
type resolved struct {
	project  string
	scenario models.Scenario
	host     models.HostConfig
	feeders  map[string]feeder.Feeder
	repo     *repository.Repository
}

// resolveScenario loads a scenario and its host either from a project
// directory (--project + scenario name argument) or from a standalone
// YAML file (--file + --host-file), mirroring the teacher's file
// flag taking precedence over the flag-driven form when both are set.
func resolveScenario(cmd *cobra.Command, scenarioArg string) (*resolved, error) {
	file, _ := cmd.Flags().GetString("file")
	hostFlag, _ := cmd.Flags().GetString("host")

	if file != "" {
		sc, err := config.LoadScenarioFile(file)
		if err != nil {
			return nil, fmt.Errorf("load scenario file: %w", err)
		}
		if err := config.Validate(&sc); err != nil {
			return nil, err
		}

		hostFile, _ := cmd.Flags().GetString("host-file")
		var host models.HostConfig
		if hostFile != "" {
			hosts, err := config.LoadHostsFile(hostFile)
			if err != nil {
				return nil, fmt.Errorf("load host file: %w", err)
			}
			name := hostFlag
			if name == "" {
				name = sc.Host
			}
			h, ok := hosts[name]
			if !ok {
				return nil, fmt.Errorf("host %q not found in %s", name, hostFile)
			}
			host = h
		}

		feeders, err := buildFeeders(sc, filepath.Dir(file))
		if err != nil {
			return nil, err
		}

		return &resolved{scenario: sc, host: host, feeders: feeders}, nil
	}

	project, _ := cmd.Flags().GetString("project")
	if project == "" {
		return nil, fmt.Errorf("either --file or --project is required")
	}
	root, _ := cmd.Flags().GetString("projects-root")

	repo, err := repository.New(root)
	if err != nil {
		return nil, err
	}

	sc, err := repo.LoadScenario(project, scenarioArg)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(&sc); err != nil {
		return nil, err
	}

	hosts, err := repo.LoadHosts(project)
	if err != nil {
		return nil, err
	}
	name := hostFlag
	if name == "" {
		name = sc.Host
	}
	host, ok := hosts[name]
	if !ok {
		return nil, fmt.Errorf("host %q not found for project %q", name, project)
	}

	feeders, err := buildFeeders(sc, filepath.Join(root, project))
	if err != nil {
		return nil, err
	}

	return &resolved{project: project, scenario: sc, host: host, feeders: feeders, repo: repo}, nil
}

// writeJSONReport writes rep as indented JSON to path, for the
// standalone-file mode where no project repository is available to
// save through.
func writeJSONReport(path string, rep models.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func buildFeeders(sc models.Scenario, baseDir string) (map[string]feeder.Feeder, error) {
	if len(sc.Data) == 0 {
		return nil, nil
	}
	feeders := make(map[string]feeder.Feeder, len(sc.Data))
	for _, d := range sc.Data {
		path := d.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		f, err := feeder.NewCSVFeeder(path)
		if err != nil {
			return nil, fmt.Errorf("load data feeder %q: %w", d.Name, err)
		}
		feeders[d.Name] = f
	}
	return feeders, nil
}

// Package repository implements the RepositoryPort boundary against a
// plain filesystem layout, adapted from the teacher's pkg/config
// loading idiom and grounded on original_source's ProjectManager /
// ReportGenerator: a project is a directory holding config/hosts.json,
// scenario/*.json, and result/{scenarios,loadtests}/YYYYMMDD/*.json.
package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Amr-9/saylrun/pkg/models"
)

// Repository is the filesystem-backed RepositoryPort implementation.
type Repository struct {
	root string
}

// New returns a Repository rooted at dir, creating it if absent.
func New(dir string) (*Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create projects root: %w", err)
	}
	return &Repository{root: dir}, nil
}

func (r *Repository) projectPath(project string) string {
	return filepath.Join(r.root, project)
}

// ListProjects returns every project directory name, sorted.
func (r *Repository) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadHosts reads config/hosts.json for the given project. Returns an
// error if the file is absent.
func (r *Repository) LoadHosts(project string) (map[string]models.HostConfig, error) {
	path := filepath.Join(r.projectPath(project), "config", "hosts.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load hosts for project %q: %w", project, err)
	}
	var hosts map[string]models.HostConfig
	if err := json.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("parse hosts.json for project %q: %w", project, err)
	}
	return hosts, nil
}

// ListScenarios returns the names (file stems) of every scenario JSON
// file in the project, sorted.
func (r *Repository) ListScenarios(project string) ([]string, error) {
	dir := filepath.Join(r.projectPath(project), "scenario")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list scenarios for project %q: %w", project, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *Repository) scenarioPath(project, name string) string {
	return filepath.Join(r.projectPath(project), "scenario", name+".json")
}

// LoadScenario reads and decodes a scenario JSON file.
func (r *Repository) LoadScenario(project, name string) (models.Scenario, error) {
	data, err := os.ReadFile(r.scenarioPath(project, name))
	if err != nil {
		return models.Scenario{}, fmt.Errorf("load scenario %q in project %q: %w", name, project, err)
	}
	var sc models.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return models.Scenario{}, fmt.Errorf("parse scenario %q: %w", name, err)
	}
	return sc, nil
}

// SaveScenario writes a scenario as indented JSON, creating the
// project's scenario directory if necessary.
func (r *Repository) SaveScenario(project, name string, sc models.Scenario) error {
	dir := filepath.Join(r.projectPath(project), "scenario")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scenario dir for project %q: %w", project, err)
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scenario %q: %w", name, err)
	}
	return os.WriteFile(r.scenarioPath(project, name), data, 0o644)
}

// DeleteScenario removes a scenario file, a no-op if it is already
// absent.
func (r *Repository) DeleteScenario(project, name string) error {
	err := os.Remove(r.scenarioPath(project, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete scenario %q in project %q: %w", name, project, err)
	}
	return nil
}

// SaveReport writes a Report under
// …/result/{scenarios|loadtests}/YYYYMMDD/<report_id>.json and returns
// the path written.
func (r *Repository) SaveReport(project string, report models.Report, at time.Time) (string, error) {
	sub := "scenarios"
	if report.TestType == "load_test" {
		sub = "loadtests"
	}
	dir := filepath.Join(r.projectPath(project), "result", sub, at.Format("20060102"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create result dir: %w", err)
	}

	path := filepath.Join(dir, report.ReportID+".json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report %q: %w", report.ReportID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %q: %w", report.ReportID, err)
	}
	return path, nil
}

// LoadReport reads a Report from an arbitrary path previously returned
// by SaveReport.
func (r *Repository) LoadReport(path string) (models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Report{}, fmt.Errorf("load report from %q: %w", path, err)
	}
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return models.Report{}, fmt.Errorf("parse report at %q: %w", path, err)
	}
	return report, nil
}

package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/saylrun/pkg/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(t.TempDir())
	require.NoError(t, err)
	return repo
}

func TestListProjects_EmptyRootReturnsNil(t *testing.T) {
	repo := newTestRepo(t)
	names, err := repo.ListProjects()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListProjects_ListsDirectoriesSorted(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(repo.root, "zeta"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(repo.root, "alpha"), 0o755))

	names, err := repo.ListProjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestLoadHosts_MissingFileErrors(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LoadHosts("demo")
	assert.Error(t, err)
}

func TestScenarioRoundTrip_SaveLoadDelete(t *testing.T) {
	repo := newTestRepo(t)
	sc := models.Scenario{
		Name: "checkout",
		Steps: []models.Step{
			{Name: "login", Method: models.MethodPOST, Path: "/login"},
		},
	}

	require.NoError(t, repo.SaveScenario("demo", "checkout", sc))

	names, err := repo.ListScenarios("demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout"}, names)

	loaded, err := repo.LoadScenario("demo", "checkout")
	require.NoError(t, err)
	assert.Equal(t, sc.Name, loaded.Name)
	assert.Equal(t, sc.Steps[0].Path, loaded.Steps[0].Path)

	require.NoError(t, repo.DeleteScenario("demo", "checkout"))
	names, err = repo.ListScenarios("demo")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDeleteScenario_MissingFileIsNoop(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.DeleteScenario("demo", "nope"))
}

func TestSaveReport_OrganizesByTypeAndDate(t *testing.T) {
	repo := newTestRepo(t)
	at := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)

	scenarioReport := models.Report{ReportID: "scenario_x_1", TestType: "scenario"}
	path, err := repo.SaveReport("demo", scenarioReport, at)
	require.NoError(t, err)
	assert.Contains(t, path, filepath.Join("result", "scenarios", "20260730"))

	loadReport := models.Report{ReportID: "loadtest_x_1", TestType: "load_test"}
	path2, err := repo.SaveReport("demo", loadReport, at)
	require.NoError(t, err)
	assert.Contains(t, path2, filepath.Join("result", "loadtests", "20260730"))

	loaded, err := repo.LoadReport(path2)
	require.NoError(t, err)
	assert.Equal(t, "loadtest_x_1", loaded.ReportID)
}

func TestLoadReport_MissingFileErrors(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LoadReport(filepath.Join(repo.root, "nope.json"))
	assert.Error(t, err)
}

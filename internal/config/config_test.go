package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gdex-tools/datahelp-router/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "router.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() config.Config {
	return config.Config{
		Slot:          config.SlotProduction,
		ProdURL:       "https://jira.example.org",
		ProdToken:     "secret",
		Project:       "HELP",
		ServiceQueue:  "HELP-SERVICES",
		CurationQueue: "HELP-CURATION",
		DirectoryURL:  "https://directory.example.org/api/datasets/{id}/contacts",
		CatchAll:      "datahelp@example.org",
		FallbackPool:  []string{"a@example.org", "b@example.org"},
		Workers:       1,
	}
}

func TestLoadFileAndDefaults(t *testing.T) {
	path := writeFile(t, `
slot: Staging
test_url: https://jira-test.example.org
test_token: from-file
directory_url: https://directory.example.org/{id}
fallback_pool:
  - one@example.org
  - two@example.org
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.SlotStaging, cfg.Slot)
	assert.Equal(t, "NSF NCAR Research Data Help Desk", cfg.Project)
	assert.Equal(t, "DATAHELP-SERVICES-CONSULTING", cfg.ServiceQueue)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, []string{"one@example.org", "two@example.org"}, cfg.FallbackPool)

	creds := cfg.Credentials()
	assert.Equal(t, config.SlotStaging, creds.Slot)
	assert.Equal(t, "https://jira-test.example.org", creds.URL)
	assert.Equal(t, "from-file", creds.Token)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "prod_url: https://jira.example.org\nprod_token: from-file\n")
	t.Setenv("PROD_JIRA_API_TOKEN", "from-env")
	t.Setenv("DATAHELP_DIRECTORY_URL", "https://dir.example.org/{id}")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Credentials().Token)
	assert.Equal(t, "https://dir.example.org/{id}", cfg.DirectoryURL)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("JIRA_PROD_URL", "https://jira.example.org")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.org", cfg.ProdURL)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeFile(t, "slot: [unterminated\n")

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "Valid", mutate: func(*config.Config) {}},
		{name: "UnknownSlot", mutate: func(c *config.Config) { c.Slot = "dev" }, wantErr: "unknown slot"},
		{name: "MissingProdToken", mutate: func(c *config.Config) { c.ProdToken = "" }, wantErr: "production JIRA token"},
		{name: "StagingNeedsTestURL", mutate: func(c *config.Config) { c.Slot = config.SlotStaging }, wantErr: "staging JIRA URL"},
		{name: "BlankQueue", mutate: func(c *config.Config) { c.CurationQueue = "  " }, wantErr: "are required"},
		{name: "SameQueues", mutate: func(c *config.Config) { c.CurationQueue = "help-services" }, wantErr: "must differ"},
		{name: "MissingDirectory", mutate: func(c *config.Config) { c.DirectoryURL = "" }, wantErr: "directory URL"},
		{name: "CatchAllNeedsPool", mutate: func(c *config.Config) { c.FallbackPool = nil }, wantErr: "fallback_pool must list"},
		{name: "PoolContainsCatchAll", mutate: func(c *config.Config) {
			c.FallbackPool = append(c.FallbackPool, "DataHelp@example.org")
		}, wantErr: "must not contain"},
		{name: "NoWorkers", mutate: func(c *config.Config) { c.Workers = 0 }, wantErr: "workers"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			testCase.mutate(&cfg)
			err := cfg.Validate()
			if testCase.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), testCase.wantErr)
		})
	}
}

func TestNormalizeSlot(t *testing.T) {
	t.Parallel()

	assert.Equal(t, config.SlotStaging, config.NormalizeSlot(" Staging\n"))
	assert.Equal(t, config.SlotProduction, config.NormalizeSlot("PRODUCTION"))

	cfg := validConfig()
	cfg.Slot = config.NormalizeSlot("Production")
	require.NoError(t, cfg.Validate())
}

func TestSaveLastCheckedKeepsOtherKeys(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "prod_url: https://jira.example.org\nworkers: 4\n")

	require.NoError(t, config.SaveLastChecked(path, "DATAHELP-12349"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "https://jira.example.org", doc["prod_url"])
	assert.Equal(t, 4, doc["workers"])
	assert.Equal(t, "DATAHELP-12349", doc["last_checked_ticket"])
	assert.NotContains(t, doc, "prod_token")
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := validConfig()
	require.NoError(t, config.Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.FallbackPool, loaded.FallbackPool)
	require.NoError(t, loaded.Validate())
}

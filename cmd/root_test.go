package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"run", "verify", "classify", "reconcile"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "outreach-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"input", "output", "limit", "concurrency", "deepen"} {
		flag := runCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "run should have --%s flag", flagName)
	}
	assert.Equal(t, "0", runCmd.Flags().Lookup("limit").DefValue)
}

func TestAnnotateCommands_Flags(t *testing.T) {
	require.NotNil(t, verifyCmd.Flags().Lookup("limit"))
	require.NotNil(t, classifyCmd.Flags().Lookup("limit"))
}

func TestLoadOrganizations_RequiresInput(t *testing.T) {
	runInput = ""
	runDeepen = ""
	_, _, err := loadOrganizations()
	assert.Error(t, err)
}

func TestLoadOrganizations_DeepenWins(t *testing.T) {
	runInput = ""
	runDeepen = filepath.Join(t.TempDir(), "missing.csv")
	defer func() { runDeepen = "" }()

	_, deepen, err := loadOrganizations()
	assert.Error(t, err, "missing deepen file should surface")
	assert.False(t, deepen)
}

func TestOpenStore_SQLiteAddsHeader(t *testing.T) {
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.SQLitePath = filepath.Join(t.TempDir(), "cmd.db")

	ctx := context.Background()
	store, err := openStore(ctx, c)
	require.NoError(t, err)
	defer store.Close()

	rows, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.SheetHeader, rows[0])
}

func TestNewFetcher_UsesCrawlConfig(t *testing.T) {
	c := &config.Config{}
	c.Crawl.MaxPageRetries = 2
	c.Crawl.TimeoutSecs = 5
	c.Crawl.PerHostRPS = 1

	assert.NotNil(t, newFetcher(c))
}

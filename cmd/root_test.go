package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "migrate", "import", "offices", "analyze", "export", "insights"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "coverage-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestOfficesCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range officesCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"add", "list", "delete", "import"} {
		assert.True(t, names[name], "offices should have subcommand %q", name)
	}
	assert.NotNil(t, officesCmd.PersistentFlags().Lookup("user"))
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"suppliers", "offices", "dataset", "user", "radius", "format"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(name), "analyze should have --%s", name)
	}
	assert.Equal(t, "table", analyzeCmd.Flags().Lookup("format").DefValue)
}

func TestExportCommand_Flags(t *testing.T) {
	for _, name := range []string{"dataset", "user", "office", "radius", "format", "out"} {
		assert.NotNil(t, exportCmd.Flags().Lookup(name), "export should have --%s", name)
	}
	assert.Equal(t, "csv", exportCmd.Flags().Lookup("format").DefValue)
}

func TestInsightsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range insightsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["recommend"])
	assert.True(t, names["swot"])
	assert.NotNil(t, insightsSWOTCmd.Flags().Lookup("office"))
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "menu", "alerts", "run"} {
		assert.True(t, names[want], want)
	}
}

func TestMenuCmd_RejectsUnknownMeal(t *testing.T) {
	_, err := execute("menu", "--meal", "brunch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown meal "brunch"`)
}

func TestRunCmd_RequiresChain(t *testing.T) {
	_, err := execute("run")
	assert.Error(t, err)
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	_, err := execute("--config", "/nonexistent/messcore.yaml", "run", "cleanup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

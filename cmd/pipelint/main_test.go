package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/githubnext/pipelint/pkg/cli"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use == "" || rootCmd.Short == "" || rootCmd.Long == "" {
		t.Error("root command should be fully described")
	}

	want := map[string]bool{"validate": false, "watch": false, "mcp": false, "version": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
		if cmd.Short == "" {
			t.Errorf("command %s has no short description", cmd.Name())
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing %s command", name)
		}
	}

	if rootCmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("verbose flag should be registered")
	}
}

func TestValidateFlags(t *testing.T) {
	validateCmd, _, err := rootCmd.Find([]string{"validate"})
	if err != nil {
		t.Fatalf("validate command not found: %v", err)
	}
	for _, name := range []string{"schema", "policy", "format", "context", "jobs"} {
		if validateCmd.Flags().Lookup(name) == nil {
			t.Errorf("validate command is missing --%s", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cli.SetVersionInfo("1.2.3")
	defer cli.SetVersionInfo("dev")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out.String(), "pipelint version 1.2.3") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"invalid-command"})
	defer rootCmd.SetArgs(nil)
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected an error for an unknown command")
	}
}

package main

import (
	"bytes"
	"strings"
	"testing"

	appconfig "github.com/wolfman30/leadflow/internal/config"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd(&appconfig.Config{})
	want := []string{"up", "down", "force", "version", "mongo-indexes"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestPostgresCommandsRequireDatabaseURL(t *testing.T) {
	for _, args := range [][]string{{"up"}, {"down"}, {"version"}, {"force", "1"}} {
		root := newRootCmd(&appconfig.Config{})
		root.SetArgs(args)
		root.SetOut(&bytes.Buffer{})
		err := root.Execute()
		if err == nil || !strings.Contains(err.Error(), "DATABASE_URL is required") {
			t.Errorf("%v: expected DATABASE_URL error, got %v", args, err)
		}
	}
}

func TestArgumentValidation(t *testing.T) {
	cases := map[string][]string{
		"force needs a version":  {"force"},
		"force needs an integer": {"force", "latest"},
		"down needs positive":    {"down", "0"},
	}
	for name, args := range cases {
		root := newRootCmd(&appconfig.Config{DatabaseURL: "postgres://unused"})
		root.SetArgs(args)
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		if err := root.Execute(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParsePositive(t *testing.T) {
	if n, err := parsePositive("3"); err != nil || n != 3 {
		t.Fatalf("parsePositive(3) = %d, %v", n, err)
	}
	if _, err := parsePositive("-1"); err == nil {
		t.Fatal("expected error for negative steps")
	}
}

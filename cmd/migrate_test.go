package cmd

import (
	"testing"
)

func TestMigrateCommandStructure(t *testing.T) {
	cmd := NewRootCmd()
	migrateCmd, _, err := cmd.Find([]string{"migrate"})
	if err != nil {
		t.Fatalf("Failed to find migrate command: %v", err)
	}

	for _, name := range []string{"up", "status"} {
		found := false
		for _, sub := range migrateCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected migrate subcommand %q to be registered", name)
		}
	}
}

func TestScanCommandFlags(t *testing.T) {
	cmd := NewRootCmd()
	scanCmd, _, err := cmd.Find([]string{"scan"})
	if err != nil {
		t.Fatalf("Failed to find scan command: %v", err)
	}

	if scanCmd.Flags().Lookup("root") == nil {
		t.Error("Expected scan command to have a --root flag")
	}
}

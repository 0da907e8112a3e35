package main

import (
	"bytes"
	"strings"
	"testing"
)

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	t.Parallel()

	output, err := runRootCommandForTest("--help")
	if err != nil {
		t.Fatalf("execute --help: %v\nOutput:\n%s", err, output)
	}

	for _, want := range []string{"chat", "assign-persona", "sweep", "status", "version"} {
		if !strings.Contains(output, want) {
			t.Errorf("root help missing %q\nOutput:\n%s", want, output)
		}
	}
}

func TestChatHelpShowsFlags(t *testing.T) {
	t.Parallel()

	output, err := runRootCommandForTest("chat", "--help")
	if err != nil {
		t.Fatalf("execute chat --help: %v\nOutput:\n%s", err, output)
	}

	for _, want := range []string{"--user", "--friend", "--message", "--retention"} {
		if !strings.Contains(output, want) {
			t.Errorf("chat help missing %q\nOutput:\n%s", want, output)
		}
	}
}

func TestUnknownCommandFails(t *testing.T) {
	t.Parallel()

	_, err := runRootCommandForTest("bogus")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

package permit

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadParsesPermsAndFiles(t *testing.T) {
	path := writeTemp(t, "permit.ini", `
[perms]
alice = 1, 2, 3
bob = 1

[files]
alice = /etc/rgpiod/* rw
bob = /tmp/* r
`)
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !tbl.AllowsCommand("alice", 2, nil) {
		t.Error("expected alice to be allowed command 2")
	}
	if tbl.AllowsCommand("alice", 9, nil) {
		t.Error("expected alice to be denied command 9")
	}
	if !tbl.AllowsCommand("bob", 1, nil) {
		t.Error("expected bob to be allowed command 1")
	}

	if !tbl.AllowsFile("alice", "/etc/rgpiod/config", true, true) {
		t.Error("expected alice read+write on /etc/rgpiod/config")
	}
	if tbl.AllowsFile("bob", "/tmp/x", true, true) {
		t.Error("expected bob to be denied write on /tmp/x")
	}
	if !tbl.AllowsFile("bob", "/tmp/x", true, false) {
		t.Error("expected bob to be allowed read on /tmp/x")
	}
}

func TestAllowsCommandFallsBackToDefaultForAnonymousUser(t *testing.T) {
	path := writeTemp(t, "permit.ini", "[perms]\nalice = 1\n")
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defaults := map[int]bool{5: true}
	if !tbl.AllowsCommand("", 5, defaults) {
		t.Error("expected the anonymous user to fall back to defaultCommands")
	}
	if tbl.AllowsCommand("", 6, defaults) {
		t.Error("command 6 is not in defaultCommands, expected denial")
	}
}

func TestAllowsCommandDeniesUnknownUser(t *testing.T) {
	path := writeTemp(t, "permit.ini", "[perms]\nalice = 1\n")
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.AllowsCommand("mallory", 1, map[int]bool{1: true}) {
		t.Error("expected an unlisted user to be denied regardless of defaults")
	}
}

func TestSecretsVerify(t *testing.T) {
	path := writeTemp(t, "secrets", "# comment\nalice=topsecret\nbob=hunter2\n")
	s, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("LoadSecrets: %v", err)
	}
	if !s.Verify("alice", "topsecret") {
		t.Error("expected alice's secret to verify")
	}
	if s.Verify("alice", "wrong") {
		t.Error("expected a wrong secret to fail verification")
	}
	if s.Verify("mallory", "anything") {
		t.Error("expected an unknown user to fail verification")
	}
}

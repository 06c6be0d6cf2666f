package config

import (
	"os"
	"path/filepath"
	"testing"
)

const fixtureTOML = `[hostlist.most]
hostnames = ["m1", "m2", "m3", "m4"]
[hostlist.m1]
hostnames = ["m1"]
[hostlist.m2]
hostnames = ["m2"]
[hostlist.m3]
hostnames = ["m3"]
[hostlist.m4]
hostnames = ["m4"]
[hosts.m1]
hostname = "10.0.0.3"
username = "jozias"
[[hosts.m1.alias]]
command = "ls.mac"
aliasfor = "ls"
[hosts.m2]
hostname = "10.0.0.4"
username = "jozias"
[hosts.m3]
hostname = "10.0.0.5"
username = "jozias"
[hosts.m4]
hostname = "10.0.0.60"
username = "jozias"
[cmd.bar]
command = "bar"
[cmd.ls]
command = "ls -al"
[cmd.uname]
command = "uname -a"
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mussh.toml")
	if err := os.WriteFile(path, []byte(fixtureTOML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoad_ParsesAllTables(t *testing.T) {
	cfg, err := Load(writeFixture(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Hostlist) != 5 {
		t.Fatalf("expected 5 hostlists, got %d", len(cfg.Hostlist))
	}
	if len(cfg.Hosts) != 4 {
		t.Fatalf("expected 4 hosts, got %d", len(cfg.Hosts))
	}
	if len(cfg.Cmd) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cfg.Cmd))
	}

	m1 := cfg.Hosts["m1"]
	if m1.Hostname != "10.0.0.3" || m1.Username != "jozias" {
		t.Fatalf("unexpected m1 host: %+v", m1)
	}
	if len(m1.Alias) != 1 || m1.Alias[0].Command != "ls.mac" || m1.Alias[0].AliasFor != "ls" {
		t.Fatalf("unexpected m1 alias: %+v", m1.Alias)
	}

	most := cfg.Hostlist["most"]
	want := []string{"m1", "m2", "m3", "m4"}
	for i, h := range want {
		if most.Hostnames[i] != h {
			t.Fatalf("hostlist order mismatch at %d: got %s want %s", i, most.Hostnames[i], h)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRoundTrip_SaveThenLoadEqual(t *testing.T) {
	cfg, err := Load(writeFixture(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out := filepath.Join(t.TempDir(), "roundtrip.toml")
	if err := cfg.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(out)
	if err != nil {
		t.Fatalf("Load reloaded: %v", err)
	}

	if !cfg.Equal(reloaded) {
		t.Fatalf("round-tripped configuration differs from original")
	}
}

func TestHostlistKeysAndCmdKeys(t *testing.T) {
	cfg, err := Load(writeFixture(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	hostlists := cfg.HostlistKeys()
	wantHostlists := []string{"m1", "m2", "m3", "m4", "most"}
	if len(hostlists) != len(wantHostlists) {
		t.Fatalf("got %v, want %v", hostlists, wantHostlists)
	}
	for i := range wantHostlists {
		if hostlists[i] != wantHostlists[i] {
			t.Fatalf("got %v, want %v", hostlists, wantHostlists)
		}
	}

	cmds := cfg.CmdKeys()
	want := []string{"bar", "ls", "uname"}
	if len(cmds) != len(want) {
		t.Fatalf("got %v, want %v", cmds, want)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Fatalf("got %v, want %v", cmds, want)
		}
	}
}

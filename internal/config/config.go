// Package config holds the typed configuration model loaded from a TOML
// document: hostlists, hosts, and commands. The configuration is immutable
// after load; the plan resolver and execution engine share it read-only.
//
// Example document:
//
//	[hostlist.most]
//	hostnames = ["m1", "m2", "m3", "m4"]
//
//	[hosts.m1]
//	hostname = "10.0.0.3"
//	username = "jozias"
//
//	[[hosts.m1.alias]]
//	command  = "ls.mac"
//	aliasfor = "ls"
//
//	[cmd.ls]
//	command = "ls -al"
package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// Alias is a per-host command-name rewrite. The first alias in a host's
// list whose AliasFor matches the requested command name wins; resolution
// is single-level (the substituted command is never itself re-aliased).
type Alias struct {
	// Command is the configured command key to substitute in.
	Command string `toml:"command"`
	// AliasFor is the logical command name being overridden.
	AliasFor string `toml:"aliasfor"`
}

// Host is a single remote (or local) endpoint.
type Host struct {
	// Hostname is a DNS name or IP; the literal "localhost" selects the
	// local-exec transport path.
	Hostname string `toml:"hostname"`
	// Username authenticates the SSH session. Required for the remote path.
	Username string `toml:"username"`
	// Port defaults to 22 when zero.
	Port uint16 `toml:"port,omitempty"`
	// Pem is an optional private key file path. When empty, the SSH agent
	// is used for authentication.
	Pem string `toml:"pem,omitempty"`
	// Alias is an ordered list of per-host command rewrites.
	Alias []Alias `toml:"alias,omitempty"`
}

// Command is a named shell command.
type Command struct {
	Command string `toml:"command"`
}

// Hostlist is a named, ordered group of host nicknames.
type Hostlist struct {
	Hostnames []string `toml:"hostnames"`
}

// Configuration is the full, three-table document: hostlists, hosts,
// commands. Map iteration order is not significant (Go maps already make
// no promise); the ordering that matters is inside Hostlist.Hostnames and
// Host.Alias, both ordinary slices.
type Configuration struct {
	Hostlist map[string]Hostlist `toml:"hostlist"`
	Hosts    map[string]Host     `toml:"hosts"`
	Cmd      map[string]Command  `toml:"cmd"`
}

// New returns an empty, zero-value Configuration with initialized maps.
func New() *Configuration {
	return &Configuration{
		Hostlist: map[string]Hostlist{},
		Hosts:    map[string]Host{},
		Cmd:      map[string]Command{},
	}
}

// Load reads and parses a TOML configuration document from path.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := New()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("decode toml %s: %w", path, err)
	}
	return cfg, nil
}

// Save re-emits the configuration as a TOML document at path, with tables
// emitted in a tables-last layout: each top-level table's entries are
// written with primitive fields first, nested tables (and arrays of
// tables) after — matching the source project's `toml::ser::tables_last`
// round-trip property. The BurntSushi/toml encoder does this naturally for a struct
// whose fields are declared primitive-before-table, which is how Host and
// Hostlist are declared above.
func (c *Configuration) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// HostlistKeys returns the configured hostlist table's keys as a sorted
// slice (deterministic for tests; the resolver consumes it as a set, not
// in this order).
func (c *Configuration) HostlistKeys() []string {
	keys := make([]string, 0, len(c.Hostlist))
	for k := range c.Hostlist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CmdKeys returns the configured command table's keys as a sorted slice.
func (c *Configuration) CmdKeys() []string {
	keys := make([]string, 0, len(c.Cmd))
	for k := range c.Cmd {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two configurations describe the same document,
// field-for-field. Intended for round-trip tests (load -> save -> load).
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	return hostlistsEqual(c.Hostlist, other.Hostlist) &&
		hostsEqual(c.Hosts, other.Hosts) &&
		cmdsEqual(c.Cmd, other.Cmd)
}

func hostlistsEqual(a, b map[string]Hostlist) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || len(v.Hostnames) != len(ov.Hostnames) {
			return false
		}
		for i := range v.Hostnames {
			if v.Hostnames[i] != ov.Hostnames[i] {
				return false
			}
		}
	}
	return true
}

func hostsEqual(a, b map[string]Host) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok {
			return false
		}
		if v.Hostname != ov.Hostname || v.Username != ov.Username ||
			v.Port != ov.Port || v.Pem != ov.Pem || len(v.Alias) != len(ov.Alias) {
			return false
		}
		for i := range v.Alias {
			if v.Alias[i] != ov.Alias[i] {
				return false
			}
		}
	}
	return true
}

func cmdsEqual(a, b map[string]Command) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// Package plan resolves a Configuration and a Request into an
// ExecutionPlan: an ordered, per-host record of (Host, PRE commands, SYNC
// commands) with host-local alias substitution already applied.
//
// Resolution never fails. Selector tokens that don't resolve to anything
// configured are silently dropped (spec.md §3 invariants, §7 "Resolution
// never fails").
package plan

import (
	"strings"

	"github.com/jozias/mussh/internal/config"
	"github.com/jozias/mussh/internal/orderedset"
	"github.com/jozias/mussh/internal/request"
)

// CmdKind distinguishes the two phases of per-host execution.
type CmdKind int

const (
	// PRE commands run before the sync barrier.
	PRE CmdKind = iota
	// SYNC commands run after the sync barrier.
	SYNC
)

func (k CmdKind) String() string {
	switch k {
	case PRE:
		return "pre"
	case SYNC:
		return "sync"
	default:
		return "unknown"
	}
}

// CommandEntry is one resolved (name, shell-string) pair in a host's
// command list, after alias substitution.
type CommandEntry struct {
	Name    string
	Command string
}

// CommandList is an ordered list of resolved commands for one CmdKind.
type CommandList []CommandEntry

// Entry is one planned host: its configuration and its PRE/SYNC command
// lists.
type Entry struct {
	Hostname string
	Host     config.Host
	Commands map[CmdKind]CommandList
}

// Plan is the ordered execution plan produced by Resolve. Iteration order
// (Entries()) is the order hostnames were first encountered: primary hosts
// before sync-only hosts.
type Plan struct {
	entries   []Entry
	index     map[string]int
	syncHosts *orderedset.Set
}

// Entries returns the planned hosts in plan order.
func (p *Plan) Entries() []Entry {
	if p == nil {
		return nil
	}
	return p.entries
}

// Len returns the number of planned hosts.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Get returns the entry for hostname and whether it was found.
func (p *Plan) Get(hostname string) (Entry, bool) {
	if p == nil {
		return Entry{}, false
	}
	i, ok := p.index[hostname]
	if !ok {
		return Entry{}, false
	}
	return p.entries[i], true
}

// IsSyncHost reports whether hostname is a member of the resolved sync
// host set (distinct from plan membership: a host may be planned without
// being a sync host, or vice versa is impossible per spec.md §3).
func (p *Plan) IsSyncHost(hostname string) bool {
	if p == nil {
		return false
	}
	return p.syncHosts.Contains(hostname)
}

// SyncHosts returns the resolved sync-host name set.
func (p *Plan) SyncHosts() *orderedset.Set {
	if p == nil {
		return orderedset.New()
	}
	return p.syncHosts
}

func newPlan() *Plan {
	return &Plan{index: make(map[string]int)}
}

func (p *Plan) insert(hostname string, host config.Host, cmds map[CmdKind]CommandList) {
	if _, ok := p.index[hostname]; ok {
		return
	}
	p.index[hostname] = len(p.entries)
	p.entries = append(p.entries, Entry{Hostname: hostname, Host: host, Commands: cmds})
}

// Resolve combines cfg and req into an ExecutionPlan per spec.md §4.D.
func Resolve(cfg *config.Configuration, req *request.Request) *Plan {
	actualHosts := resolveHostSelector(cfg, req.Hosts)
	actualSyncHosts := resolveHostSelector(cfg, req.SyncHosts)
	actualCmds := resolveCommandSelector(cfg, req.Commands)
	actualSyncCmds := resolveCommandSelector(cfg, req.SyncCommands)

	p := newPlan()
	p.syncHosts = actualSyncHosts

	for _, name := range actualHosts.Values() {
		host := cfg.Hosts[name]
		p.insert(name, host, map[CmdKind]CommandList{
			PRE:  resolveAliases(cfg, host, actualCmds),
			SYNC: resolveAliases(cfg, host, actualSyncCmds),
		})
	}
	for _, name := range actualSyncHosts.Values() {
		host, ok := cfg.Hosts[name]
		if !ok {
			continue
		}
		p.insert(name, host, map[CmdKind]CommandList{
			PRE:  resolveAliases(cfg, host, actualCmds),
			SYNC: resolveAliases(cfg, host, actualSyncCmds),
		})
	}
	return p
}

// resolveHostSelector implements spec.md §4.D host selector resolution
// steps 1-5: expand hostlist tokens, collect "!"-prefixed exclusions,
// filter them out, gate by the configured hostlist keyspace (this is the
// Open Question #1 behavior: intersect against hostlist keys, not host
// keys, per spec.md's mandate for behavioral parity), then dereference to
// Host records (dropping any name with no Host entry, which also drops it
// from the returned name set since a name with no Host can't be planned).
func resolveHostSelector(cfg *config.Configuration, selectors *orderedset.Set) *orderedset.Set {
	expanded := orderedset.New()
	exclusions := orderedset.New()

	for _, token := range selectors.Values() {
		if rest, ok := negativeSuffix(token); ok {
			exclusions.Add(rest)
			continue
		}
		if hl, ok := cfg.Hostlist[token]; ok {
			expanded.Add(hl.Hostnames...)
		}
	}

	filtered := expanded.Difference(exclusions)

	hostlistKeys := orderedset.New(cfg.HostlistKeys()...)
	gated := filtered.Intersect(hostlistKeys)

	return gated.Retain(func(name string) bool {
		_, ok := cfg.Hosts[name]
		return ok
	})
}

func negativeSuffix(token string) (string, bool) {
	if strings.HasPrefix(token, "!") {
		return token[1:], true
	}
	return "", false
}

// resolveCommandSelector implements spec.md §4.D command selector
// resolution: intersect the requested set with the configured command
// table's keyspace, preserving requested order.
func resolveCommandSelector(cfg *config.Configuration, selectors *orderedset.Set) *orderedset.Set {
	configured := orderedset.New(cfg.CmdKeys()...)
	return selectors.Intersect(configured)
}

// resolveAliases applies spec.md §4.D per-host alias substitution to each
// requested command name, preserving the order of names.
func resolveAliases(cfg *config.Configuration, host config.Host, names *orderedset.Set) CommandList {
	list := make(CommandList, 0, names.Len())
	for _, name := range names.Values() {
		cmd := cfg.Cmd[name]
		literal := cmd.Command
		if substituted, ok := aliasedLiteral(cfg, host, name); ok {
			literal = substituted
		}
		list = append(list, CommandEntry{Name: name, Command: literal})
	}
	return list
}

// aliasedLiteral scans host.Alias in order for the first entry whose
// AliasFor matches name. If found and its Command resolves in the global
// command table, that command's literal string is returned. The scan
// stops at the first match regardless of whether the lookup succeeded
// (first-match wins; an alias whose target is unconfigured leaves the
// original command string in place, per spec.md invariant "Alias
// resolution is idempotent").
func aliasedLiteral(cfg *config.Configuration, host config.Host, name string) (string, bool) {
	for _, a := range host.Alias {
		if a.AliasFor != name {
			continue
		}
		if target, ok := cfg.Cmd[a.Command]; ok {
			return target.Command, true
		}
		return "", false
	}
	return "", false
}

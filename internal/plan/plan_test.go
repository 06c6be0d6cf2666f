package plan

import (
	"testing"

	"github.com/jozias/mussh/internal/config"
	"github.com/jozias/mussh/internal/request"
)

func fixtureConfig() *config.Configuration {
	cfg := config.New()
	cfg.Hostlist["most"] = config.Hostlist{Hostnames: []string{"m1", "m2", "m3", "m4"}}
	cfg.Hostlist["m1"] = config.Hostlist{Hostnames: []string{"m1"}}
	cfg.Hostlist["m2"] = config.Hostlist{Hostnames: []string{"m2"}}
	cfg.Hostlist["m3"] = config.Hostlist{Hostnames: []string{"m3"}}
	cfg.Hostlist["m4"] = config.Hostlist{Hostnames: []string{"m4"}}

	cfg.Hosts["m1"] = config.Host{
		Hostname: "10.0.0.3",
		Username: "jozias",
		Alias:    []config.Alias{{Command: "ls.mac", AliasFor: "ls"}},
	}
	cfg.Hosts["m2"] = config.Host{Hostname: "10.0.0.4", Username: "jozias"}
	cfg.Hosts["m3"] = config.Host{Hostname: "10.0.0.5", Username: "jozias"}
	cfg.Hosts["m4"] = config.Host{Hostname: "10.0.0.60", Username: "jozias"}

	cfg.Cmd["bar"] = config.Command{Command: "bar"}
	cfg.Cmd["ls"] = config.Command{Command: "ls -al"}
	cfg.Cmd["uname"] = config.Command{Command: "uname -a"}

	return cfg
}

func hostnames(p *Plan) []string {
	out := make([]string, 0, p.Len())
	for _, e := range p.Entries() {
		out = append(out, e.Hostname)
	}
	return out
}

func assertStrings(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// Scenario 1: -h m1,m2,m3,m1,m3
func TestResolve_PrimaryHostsDedupEmptyCommands(t *testing.T) {
	cfg := fixtureConfig()
	req := request.New("m1,m2,m3,m1,m3", "", "", "")
	p := Resolve(cfg, req)

	assertStrings(t, hostnames(p), []string{"m1", "m2", "m3"})
	for _, e := range p.Entries() {
		if len(e.Commands[PRE]) != 0 || len(e.Commands[SYNC]) != 0 {
			t.Fatalf("expected empty command maps for %s, got %+v", e.Hostname, e.Commands)
		}
	}
}

// Scenario 2: -s m1,m2,m3,m1,m3 (no -h)
func TestResolve_SyncOnlyHostsStillPlanned(t *testing.T) {
	cfg := fixtureConfig()
	req := request.New("", "m1,m2,m3,m1,m3", "", "")
	p := Resolve(cfg, req)

	assertStrings(t, hostnames(p), []string{"m1", "m2", "m3"})
	for _, e := range p.Entries() {
		if len(e.Commands[PRE]) != 0 || len(e.Commands[SYNC]) != 0 {
			t.Fatalf("expected empty command maps for %s", e.Hostname)
		}
		if !p.IsSyncHost(e.Hostname) {
			t.Fatalf("expected %s to be a sync host", e.Hostname)
		}
	}
}

// Scenario 3: -h m1 -c ls,uname,bar,bar,ls,uname,bar
func TestResolve_PreCommandsOrderedDedupedAliasMiss(t *testing.T) {
	cfg := fixtureConfig()
	req := request.New("m1", "", "ls,uname,bar,bar,ls,uname,bar", "")
	p := Resolve(cfg, req)

	e, ok := p.Get("m1")
	if !ok {
		t.Fatalf("expected m1 in plan")
	}
	want := CommandList{
		{Name: "ls", Command: "ls -al"},
		{Name: "uname", Command: "uname -a"},
		{Name: "bar", Command: "bar"},
	}
	if len(e.Commands[PRE]) != len(want) {
		t.Fatalf("got %+v, want %+v", e.Commands[PRE], want)
	}
	for i := range want {
		if e.Commands[PRE][i] != want[i] {
			t.Fatalf("got %+v, want %+v", e.Commands[PRE], want)
		}
	}
	if len(e.Commands[SYNC]) != 0 {
		t.Fatalf("expected empty SYNC, got %+v", e.Commands[SYNC])
	}
}

// Scenario 4: -h m1 -y ls,uname,bar,bar,ls,uname,bar
func TestResolve_SyncCommandsOrdered(t *testing.T) {
	cfg := fixtureConfig()
	req := request.New("m1", "", "", "ls,uname,bar,bar,ls,uname,bar")
	p := Resolve(cfg, req)

	e, _ := p.Get("m1")
	if len(e.Commands[PRE]) != 0 {
		t.Fatalf("expected empty PRE, got %+v", e.Commands[PRE])
	}
	want := []string{"ls", "uname", "bar"}
	if len(e.Commands[SYNC]) != 3 {
		t.Fatalf("got %+v, want names %v", e.Commands[SYNC], want)
	}
	for i, n := range want {
		if e.Commands[SYNC][i].Name != n {
			t.Fatalf("got %+v, want names %v", e.Commands[SYNC], want)
		}
	}
}

// Scenario 5: -h most,!m4 -c ls -s m1,m2 -y uname
func TestResolve_ExclusionAndSyncOverlap(t *testing.T) {
	cfg := fixtureConfig()
	req := request.New("most,!m4", "m1,m2", "ls", "uname")
	p := Resolve(cfg, req)

	assertStrings(t, hostnames(p), []string{"m1", "m2", "m3"})

	for _, e := range p.Entries() {
		if len(e.Commands[PRE]) != 1 || e.Commands[PRE][0].Name != "ls" {
			t.Fatalf("expected PRE=[ls] for %s, got %+v", e.Hostname, e.Commands[PRE])
		}
		if len(e.Commands[SYNC]) != 1 || e.Commands[SYNC][0].Name != "uname" || e.Commands[SYNC][0].Command != "uname -a" {
			t.Fatalf("expected SYNC=[uname] for %s, got %+v", e.Hostname, e.Commands[SYNC])
		}
	}
	if !p.IsSyncHost("m1") || !p.IsSyncHost("m2") {
		t.Fatalf("expected m1,m2 to be sync hosts")
	}
	if p.IsSyncHost("m3") {
		t.Fatalf("m3 should not be a sync host")
	}
}

// Scenario 6: alias rewrite to a configured command succeeds.
func TestResolve_AliasSubstitutesWhenTargetConfigured(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Hosts["m1"] = config.Host{
		Hostname: "10.0.0.3",
		Username: "jozias",
		Alias:    []config.Alias{{Command: "bar", AliasFor: "ls"}},
	}
	req := request.New("m1", "", "ls,uname,bar,bar,ls,uname,bar", "")
	p := Resolve(cfg, req)

	e, _ := p.Get("m1")
	want := CommandList{
		{Name: "ls", Command: "bar"},
		{Name: "uname", Command: "uname -a"},
		{Name: "bar", Command: "bar"},
	}
	for i := range want {
		if e.Commands[PRE][i] != want[i] {
			t.Fatalf("got %+v, want %+v", e.Commands[PRE], want)
		}
	}
}

func TestResolve_EmptyRequestYieldsEmptyPlan(t *testing.T) {
	cfg := fixtureConfig()
	p := Resolve(cfg, request.New("", "", "", ""))
	if p.Len() != 0 {
		t.Fatalf("expected empty plan, got %v", hostnames(p))
	}
}

func TestResolve_ExclusionOfEverythingYieldsEmptyPlan(t *testing.T) {
	cfg := fixtureConfig()
	p := Resolve(cfg, request.New("most,!m1,!m2,!m3,!m4", "", "", ""))
	if p.Len() != 0 {
		t.Fatalf("expected empty plan, got %v", hostnames(p))
	}
}

func TestResolve_ExclusionNoOpWhenTargetNotExpanded(t *testing.T) {
	cfg := fixtureConfig()
	p := Resolve(cfg, request.New("m1,!m9", "", "", ""))
	assertStrings(t, hostnames(p), []string{"m1"})
}

func TestResolve_HostNotInAnyHostlistIsUnreachable(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Hosts["orphan"] = config.Host{Hostname: "10.0.0.99", Username: "jozias"}
	// "orphan" has no hostlist entry of its own and isn't part of "most".
	p := Resolve(cfg, request.New("most,orphan", "", "", ""))
	assertStrings(t, hostnames(p), []string{"m1", "m2", "m3", "m4"})
}

func TestResolve_AliasTargetUnconfiguredKeepsOriginal(t *testing.T) {
	cfg := fixtureConfig()
	// m1's configured alias targets "ls.mac", which is not a configured command.
	p := Resolve(cfg, request.New("m1", "", "ls", ""))
	e, _ := p.Get("m1")
	if len(e.Commands[PRE]) != 1 || e.Commands[PRE][0].Command != "ls -al" {
		t.Fatalf("expected unaliased literal kept, got %+v", e.Commands[PRE])
	}
}

func TestResolve_UnknownSelectorsSilentlyDropped(t *testing.T) {
	cfg := fixtureConfig()
	p := Resolve(cfg, request.New("nosuchhostlist", "", "nosuchcmd", ""))
	if p.Len() != 0 {
		t.Fatalf("expected empty plan for unknown hostlist selector")
	}
}

func TestResolve_IsPureFunction(t *testing.T) {
	cfg := fixtureConfig()
	req := request.New("most,!m4", "m1,m2", "ls", "uname")
	p1 := Resolve(cfg, req)
	p2 := Resolve(cfg, req)

	assertStrings(t, hostnames(p1), hostnames(p2))
	for _, e1 := range p1.Entries() {
		e2, ok := p2.Get(e1.Hostname)
		if !ok {
			t.Fatalf("missing %s in second resolve", e1.Hostname)
		}
		if len(e1.Commands[PRE]) != len(e2.Commands[PRE]) || len(e1.Commands[SYNC]) != len(e2.Commands[SYNC]) {
			t.Fatalf("resolve is not deterministic for %s", e1.Hostname)
		}
	}
}

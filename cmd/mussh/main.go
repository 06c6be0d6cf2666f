package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jozias/mussh/internal/config"
	"github.com/jozias/mussh/internal/durationfmt"
	"github.com/jozias/mussh/internal/engine"
	"github.com/jozias/mussh/internal/hostlog"
	"github.com/jozias/mussh/internal/plan"
	"github.com/jozias/mussh/internal/request"
)

var (
	flagConfig       string
	flagHosts        string
	flagSyncHosts    string
	flagCommands     string
	flagSyncCommands string
	flagDryRun       bool
	flagSynchronous  bool
	flagLogsDir      string
	flagLogLevel     string
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "Path to TOML config (defaults to XDG paths if empty)")

	flag.StringVar(&flagHosts, "hosts", "", "Primary host selector, comma-delimited (supports !name exclusion)")
	flag.StringVar(&flagHosts, "h", "", "Shorthand for -hosts")
	flag.StringVar(&flagSyncHosts, "sync_hosts", "", "Sync host selector, comma-delimited")
	flag.StringVar(&flagSyncHosts, "s", "", "Shorthand for -sync_hosts")
	flag.StringVar(&flagCommands, "commands", "", "Primary command selector, comma-delimited")
	flag.StringVar(&flagCommands, "c", "", "Shorthand for -commands")
	flag.StringVar(&flagSyncCommands, "sync_commands", "", "Sync command selector, comma-delimited")
	flag.StringVar(&flagSyncCommands, "y", "", "Shorthand for -sync_commands")

	flag.BoolVar(&flagDryRun, "dry-run", false, "Resolve and print the plan, but run nothing")
	flag.BoolVar(&flagSynchronous, "synchronous", false, "Serialize worker dispatch (spawns per-host goroutines, but waits on each before the next)")
	flag.StringVar(&flagLogsDir, "logs-dir", "", "Base directory for per-host command-output logs (defaults to XDG paths if empty)")
	flag.StringVar(&flagLogLevel, "log-level", "info", "Progress log level: trace|debug|info|warn|error")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mussh\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  mussh --config hosts.toml --hosts most --commands ls,uname\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mussh: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath, err := resolveConfigPath(flagConfig)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}

	req := request.New(flagHosts, flagSyncHosts, flagCommands, flagSyncCommands)
	p := plan.Resolve(cfg, req)

	level := hclog.LevelFromString(flagLogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	stdout := hclog.New(&hclog.LoggerOptions{Name: "mussh", Output: os.Stdout, Level: level})
	stderr := hclog.New(&hclog.LoggerOptions{Name: "mussh", Output: os.Stderr, Level: level})

	if flagDryRun {
		printPlan(stdout, p)
	}

	logOpts := hostlog.DefaultOptions()
	logOpts.BaseDir = flagLogsDir
	openFiles := make([]*os.File, 0, p.Len())
	defer func() {
		for _, f := range openFiles {
			_ = f.Close()
		}
	}()

	now := time.Now()
	hostLoggers := make(map[string]hclog.Logger, p.Len())
	for _, entry := range p.Entries() {
		logger, f, err := hostlog.Open(entry.Hostname, logOpts, now)
		if err != nil {
			stderr.Warn("open host log failed", "host", entry.Hostname, "error", err)
			continue
		}
		hostLoggers[entry.Hostname] = logger
		openFiles = append(openFiles, f)
	}

	e := &engine.Engine{
		Stdout:      stdout,
		Stderr:      stderr,
		Synchronous: flagSynchronous,
		DryRun:      flagDryRun,
		HostLogger: func(hostname string) hclog.Logger {
			return hostLoggers[hostname]
		},
	}

	start := time.Now()
	results := e.Run(p)
	elapsed := durationfmt.Format(time.Since(start))

	stdout.Info("run complete", "hosts", p.Len(), "commands", len(results), "duration", elapsed)

	return results.Errors()
}

func printPlan(logger hclog.Logger, p *plan.Plan) {
	for _, entry := range p.Entries() {
		pre := commandNames(entry.Commands[plan.PRE])
		sync := commandNames(entry.Commands[plan.SYNC])
		logger.Info("planned host", "host", entry.Hostname, "sync_host", p.IsSyncHost(entry.Hostname), "pre", pre, "sync", sync)
	}
}

func commandNames(cmds plan.CommandList) string {
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	return strings.Join(names, ",")
}

func resolveConfigPath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return xdg + "/mussh/mussh.toml", nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve default config path: %w", err)
	}
	return home + "/.config/mussh/mussh.toml", nil
}

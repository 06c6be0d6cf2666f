// Package transport executes one command on one host, either over a local
// shell ("localhost") or over SSH, and reports a Metric on success or a
// typed Error on failure. It never retries and never aborts a caller's
// remaining commands — each call is independent (spec.md §4.F).
package transport

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/jozias/mussh/internal/config"
	"github.com/jozias/mussh/internal/durationfmt"
)

// LocalHostname is the sentinel hostname that selects the local-exec path
// instead of SSH.
const LocalHostname = "localhost"

// Metric is produced per attempted command that completed successfully.
type Metric struct {
	Hostname        string
	CmdName         string
	Duration        time.Duration
	TimestampMillis int64
}

// Sinks groups the three logger roles spec.md §4.E/§9 describe: progress
// to stdout, errors to stderr, and the remote command's own output to a
// per-host sink. Any field left nil is replaced with a discard logger —
// the core treats loggers as optional and never synchronizes writes
// itself (concurrent-safe writers are the caller's responsibility).
type Sinks struct {
	Stdout hclog.Logger
	Stderr hclog.Logger
	CmdOut hclog.Logger
}

func (s Sinks) resolved() Sinks {
	out := s
	if out.Stdout == nil {
		out.Stdout = hclog.NewNullLogger()
	}
	if out.Stderr == nil {
		out.Stderr = hclog.NewNullLogger()
	}
	if out.CmdOut == nil {
		out.CmdOut = hclog.NewNullLogger()
	}
	return out
}

// ConnectTimeout bounds the remote TCP dial and SSH handshake.
var ConnectTimeout = 10 * time.Second

// ExecuteOnHost runs cmdString (named cmdName) on host, dispatching to the
// local or remote path based on host.Hostname.
func ExecuteOnHost(sinks Sinks, host config.Host, cmdName, cmdString string) (Metric, error) {
	sinks = sinks.resolved()
	if host.Hostname == LocalHostname {
		return executeOnLocalhost(sinks, host, cmdName, cmdString)
	}
	return executeOnRemote(sinks, host, cmdName, cmdString)
}

func executeOnLocalhost(sinks Sinks, host config.Host, cmdName, cmdString string) (Metric, error) {
	shellPath := os.Getenv("SHELL")
	if shellPath == "" {
		return Metric{}, newErr(KindShellNotFound, "SHELL is not set", nil)
	}

	start := time.Now()
	cmd := exec.Command(shellPath, "-c", cmdString)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Metric{}, newErr(KindSpawn, err.Error(), err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return Metric{}, newErr(KindSpawn, err.Error(), err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		sinks.CmdOut.Trace(scanner.Text())
	}

	waitErr := cmd.Wait()
	duration := time.Since(start)
	elapsed := durationfmt.Format(duration)

	if waitErr == nil {
		metric := Metric{
			Hostname:        host.Hostname,
			CmdName:         cmdName,
			Duration:        duration,
			TimestampMillis: start.UnixMilli(),
		}
		sinks.Stdout.Info("execute", "host", host.Hostname, "cmd", cmdName, "duration", elapsed)
		return metric, nil
	}

	sinks.Stderr.Error("execute", "host", host.Hostname, "cmd", cmdName, "duration", elapsed)
	msg := fmt.Sprintf("failed to run %q on %q", cmdName, host.Hostname)
	return Metric{}, newErr(KindNonZero, msg, waitErr)
}

func executeOnRemote(sinks Sinks, host config.Host, cmdName, cmdString string) (Metric, error) {
	start := time.Now()

	auth, err := authMethod(host)
	if err != nil {
		return Metric{}, newErr(KindSshSession, err.Error(), err)
	}

	clientConfig := &ssh.ClientConfig{
		User:            host.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         ConnectTimeout,
	}

	port := host.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(host.Hostname, strconv.Itoa(int(port)))

	conn, err := net.DialTimeout("tcp", addr, ConnectTimeout)
	if err != nil {
		return Metric{}, newErr(KindIO, err.Error(), err)
	}

	_ = conn.SetDeadline(time.Now().Add(ConnectTimeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		_ = conn.Close()
		return Metric{}, newErr(KindSshAuthentication, err.Error(), err)
	}
	_ = conn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	sinks.Stdout.Trace("execute", "message", "authenticated", "host", host.Hostname)

	session, err := client.NewSession()
	if err != nil {
		return Metric{}, newErr(KindSshSession, err.Error(), err)
	}
	defer session.Close()

	outPipe, err := session.StdoutPipe()
	if err != nil {
		return Metric{}, newErr(KindSsh, err.Error(), err)
	}

	if err := session.Start(cmdString); err != nil {
		return Metric{}, newErr(KindSshExec, err.Error(), err)
	}

	scanner := bufio.NewScanner(outPipe)
	for scanner.Scan() {
		sinks.CmdOut.Trace(scanner.Text())
	}

	waitErr := session.Wait()
	duration := time.Since(start)
	elapsed := durationfmt.Format(duration)

	if waitErr == nil {
		metric := Metric{
			Hostname:        host.Hostname,
			CmdName:         cmdName,
			Duration:        duration,
			TimestampMillis: start.UnixMilli(),
		}
		sinks.Stdout.Info("execute", "host", host.Hostname, "cmd", cmdName, "duration", elapsed)
		return metric, nil
	}

	if exitErr, ok := waitErr.(*ssh.ExitError); ok {
		sinks.Stderr.Error("execute", "host", host.Hostname, "cmd", cmdName, "duration", elapsed)
		msg := fmt.Sprintf("failed to run %q on %q", cmdName, host.Hostname)
		_ = exitErr
		return Metric{}, newErr(KindNonZero, msg, waitErr)
	}

	sinks.Stderr.Error("execute", "hostname", host.Hostname, "cmd", cmdName, "error", waitErr.Error())
	msg := fmt.Sprintf("failed to run %q on %q", cmdName, host.Hostname)
	return Metric{}, newErr(KindSshExec, msg, waitErr)
}

// authMethod selects pubkey-file or SSH-agent authentication per
// spec.md §4.F step 4: when host.Pem is set, authenticate by key file;
// otherwise use the SSH agent.
func authMethod(host config.Host) (ssh.AuthMethod, error) {
	if strings.TrimSpace(host.Pem) != "" {
		return pubkeyFileAuth(host.Pem)
	}
	return agentAuth()
}

func pubkeyFileAuth(path string) (ssh.AuthMethod, error) {
	path = expandTilde(path)
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func agentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK is not set; no ssh-agent available")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, err
	}
	ag := agent.NewClient(conn)
	return ssh.PublicKeysCallback(ag.Signers), nil
}

func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	u, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return u.HomeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(u.HomeDir, path[2:])
	}
	return path
}

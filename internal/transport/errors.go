package transport

import "fmt"

// Kind enumerates the transport-specific error taxonomy from spec.md §7.
// Kinds are not Go types; they're a tag carried on Error so callers can
// branch with errors.As without string-matching messages.
type Kind int

const (
	// KindSsh is a generic SSH transport failure.
	KindSsh Kind = iota
	// KindSshSession means a session could not be allocated.
	KindSshSession
	// KindSshAuthentication means the session was established but
	// authentication was rejected.
	KindSshAuthentication
	// KindSshExec means the exec channel failed or the exit status could
	// not be read.
	KindSshExec
	// KindSpawn means the local child process could not start.
	KindSpawn
	// KindShellNotFound means $SHELL was unset on the local-exec path.
	KindShellNotFound
	// KindNonZero means the command exited with a non-zero status.
	KindNonZero
	// KindIO is an underlying I/O failure (socket, pipe).
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindSsh:
		return "ssh"
	case KindSshSession:
		return "ssh_session"
	case KindSshAuthentication:
		return "ssh_authentication"
	case KindSshExec:
		return "ssh_exec"
	case KindSpawn:
		return "spawn"
	case KindShellNotFound:
		return "shell_not_found"
	case KindNonZero:
		return "non_zero"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a typed per-command transport failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

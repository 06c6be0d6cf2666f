// Package request models the caller's four ordered selector sets: hosts,
// sync hosts, commands, and sync commands. A Request is built once per
// invocation from comma-delimited strings and is immutable thereafter.
package request

import (
	"strings"

	"github.com/jozias/mussh/internal/orderedset"
)

// Request holds the four selector sets built from CLI input. Host
// selectors may include negative ("!name") exclusion tokens; command
// selectors never do.
type Request struct {
	Hosts        *orderedset.Set
	SyncHosts    *orderedset.Set
	Commands     *orderedset.Set
	SyncCommands *orderedset.Set
}

// New builds a Request from four comma-delimited strings. An empty string
// yields an empty selector set.
func New(hosts, syncHosts, commands, syncCommands string) *Request {
	return &Request{
		Hosts:        fromCSV(hosts),
		SyncHosts:    fromCSV(syncHosts),
		Commands:     fromCSV(commands),
		SyncCommands: fromCSV(syncCommands),
	}
}

func fromCSV(s string) *orderedset.Set {
	if strings.TrimSpace(s) == "" {
		return orderedset.New()
	}
	parts := strings.Split(s, ",")
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		trimmed = append(trimmed, p)
	}
	return orderedset.New(trimmed...)
}

// Package logging selects which subsystems of the emitter log, and returns
// their loggers. This is in an independent package to avoid dependency
// cycles.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
)

type LogScopes uint64

const (
	LogScopeNone             = LogScopes(0)
	LogScopeBranch LogScopes = 1 << iota
	LogScopeEncode
	LogScopeDebugLine
	LogScopeCache
	LogScopeAll = LogScopes(0xffffffffffffffff)
)

func scopeName(s LogScopes) string {
	switch s {
	case LogScopeBranch:
		return "branch"
	case LogScopeEncode:
		return "encode"
	case LogScopeDebugLine:
		return "debugline"
	case LogScopeCache:
		return "cache"
	default:
		return ""
	}
}

// IsEnabled returns true if the scope (or group of scopes) is enabled.
func (f LogScopes) IsEnabled(scope LogScopes) bool {
	return f&scope != 0
}

// String implements fmt.Stringer by returning each enabled log scope.
func (f LogScopes) String() string {
	if f == LogScopeAll {
		return "all"
	}
	var builder strings.Builder
	for i := 0; i <= 63; i++ { // cycle through all bits to reduce code and maintenance
		target := LogScopes(1 << i)
		if f.IsEnabled(target) {
			if name := scopeName(target); name != "" {
				if builder.Len() > 0 {
					builder.WriteByte('|')
				}
				builder.WriteString(name)
			}
		}
	}
	return builder.String()
}

// ParseLogScopes parses a comma-separated list of scope names. "all" enables
// every scope.
func ParseLogScopes(input string) (LogScopes, error) {
	var f LogScopes
	for _, s := range strings.Split(input, ",") {
		switch s {
		case "":
			continue
		case "all":
			f |= LogScopeAll
		case "branch":
			f |= LogScopeBranch
		case "encode":
			f |= LogScopeEncode
		case "debugline":
			f |= LogScopeDebugLine
		case "cache":
			f |= LogScopeCache
		default:
			return 0, fmt.Errorf("%w: %q", errNotLogScope, s)
		}
	}
	return f, nil
}

var errNotLogScope = errors.New("not a log scope")

// Logger returns the logger of scope, which must be exactly one scope. When
// the scope is not enabled, the returned logger discards everything.
func (f LogScopes) Logger(scope LogScopes) commonlog.Logger {
	if !f.IsEnabled(scope) {
		return commonlog.MOCK_LOGGER
	}
	name := scopeName(scope)
	if name == "" {
		panic(fmt.Sprintf("BUG: not a single log scope: %d", uint64(scope)))
	}
	return commonlog.GetLogger("sparcemit." + name)
}

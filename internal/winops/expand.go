package winops

import (
	"os"
	"regexp"
	"strings"
)

var envToken = regexp.MustCompile(`%[^%\s]+%`)

// ExpandTokens replaces %NAME% tokens in path using lookup.
// Unresolvable tokens are left literal, matching cmd.exe behavior.
func ExpandTokens(path string, lookup func(string) (string, bool)) string {
	return envToken.ReplaceAllStringFunc(path, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if val, ok := lookup(name); ok {
			return val
		}
		return tok
	})
}

// LookupEnvFold is a process-environment lookup that is case-insensitive,
// as environment variable names are on Windows.
func LookupEnvFold(name string) (string, bool) {
	if val, ok := os.LookupEnv(name); ok {
		return val, true
	}
	for _, kv := range os.Environ() {
		k, v, found := strings.Cut(kv, "=")
		if found && strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

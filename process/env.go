package process

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// mergeEnv snapshots the caller's environment into a fresh map and applies
// overlay on top. A nil overlay returns nil so the child inherits the
// caller's environment as-is. The caller's environment is never modified.
func mergeEnv(overlay map[string]string, dir string) []string {
	if overlay == nil {
		return nil // inherit parent env
	}

	merged := environMap()
	for k, v := range overlay {
		merged[k] = v
	}

	// os/exec only sets PWD for Dir when Env is nil.
	if _, ok := overlay["PWD"]; !ok && dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			merged["PWD"] = abs
		}
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// environMap copies os.Environ into a map. Keys may start with '=' (Windows
// per-drive directories), so the separator is searched from index 1.
func environMap() map[string]string {
	environ := os.Environ()
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if kv == "" {
			continue
		}
		i := strings.IndexByte(kv[1:], '=')
		if i < 0 {
			m[kv] = ""
			continue
		}
		m[kv[:i+1]] = kv[i+2:]
	}
	return m
}

// mergeOverlays layers cmd over base into a fresh map. The result is nil
// only when both are nil.
func mergeOverlays(base, cmd map[string]string) map[string]string {
	if base == nil {
		return cmd
	}
	merged := make(map[string]string, len(base)+len(cmd))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range cmd {
		merged[k] = v
	}
	return merged
}

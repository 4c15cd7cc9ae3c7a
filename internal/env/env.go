package env

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Env composes the environment handed to the backend process.
// Layers are applied in order: inherited OS env (when enabled), env files,
// then explicit KEY=VALUE pairs. Later layers win.
type Env struct {
	inherit bool
	vars    map[string]string
	osEnv   func() []string
}

func New(inherit bool) *Env {
	return &Env{inherit: inherit, vars: make(map[string]string), osEnv: os.Environ}
}

// Set adds or replaces one variable.
func (e *Env) Set(k, v string) {
	if k == "" {
		return
	}
	e.vars[k] = v
}

// SetPairs applies "KEY=VALUE" entries; malformed entries are ignored.
func (e *Env) SetPairs(kvs []string) {
	for _, kv := range kvs {
		if k, v, ok := strings.Cut(kv, "="); ok {
			e.Set(strings.TrimSpace(k), v)
		}
	}
}

// LoadFile applies a dotenv-style file (KEY=VALUE per line, # comments).
func (e *Env) LoadFile(path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open env file: %w", err)
	}
	defer func() { _ = f.Close() }()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		if k, v, ok := strings.Cut(line, "="); ok {
			e.Set(strings.TrimSpace(k), strings.Trim(strings.TrimSpace(v), `"'`))
		}
	}
	return s.Err()
}

// Build returns the composed environment as sorted "KEY=VALUE" entries.
// ${VAR} references in explicit values are expanded once against the
// unexpanded composed map; unknown references expand to the empty string.
func (e *Env) Build() []string {
	base := make(map[string]string)
	if e.inherit {
		for _, kv := range e.osEnv() {
			if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
				base[k] = v
			}
		}
	}
	raw := make(map[string]string, len(base)+len(e.vars))
	for k, v := range base {
		raw[k] = v
	}
	for k, v := range e.vars {
		raw[k] = v
	}
	m := make(map[string]string, len(raw))
	for k, v := range raw {
		m[k] = v
	}
	for k, v := range e.vars {
		m[k] = os.Expand(v, func(ref string) string {
			if ref == k {
				// PATH=${PATH}:/extra refers to the inherited value
				return base[ref]
			}
			return raw[ref]
		})
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Package process runs allow-listed local commands as integration functions.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/registry"
)

// EnvPrefix prefixes the variables carrying top-level scalar state values.
const EnvPrefix = "PARLEY_STATE_"

// OutputKey receives stdout when the command does not print a JSON object.
const OutputKey = "output"

// Option configures the registered functions.
type Option func(*options)

type options struct {
	baseDir string
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}

// Register adds one registry function per configured command and returns the
// registered names in sorted order.
func Register(reg *registry.Registry, functions map[string]Config, opts ...Option) []string {
	names := make([]string, 0, len(functions))
	for name, cfg := range functions {
		reg.Register(name, Function(cfg, opts...))
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Function builds a registry.Function that runs cfg.Command.
//
// The session state is written to stdin as JSON and top-level scalar values are
// also exported as PARLEY_STATE_<KEY>. Arguments are never derived from state.
// A JSON object on stdout is merged into the state; any other output is stored
// under OutputKey. A non-zero exit fails the function with stderr attached.
func Function(cfg Config, opts ...Option) registry.Function {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return func(ctx context.Context, state map[string]any) (map[string]any, error) {
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}

		input, err := json.Marshal(state)
		if err != nil {
			return nil, fmt.Errorf("encode state: %w", err)
		}

		cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
		cmd.Dir = o.baseDir
		cmd.Stdin = bytes.NewReader(input)
		cmd.Env = append(cmd.Environ(), environment(cfg, state)...)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("%s: execution failed: %w: %s", cfg.Name, err, strings.TrimSpace(stderr.String()))
		}
		return parseOutput(stdout.String()), nil
	}
}

func environment(cfg Config, state map[string]any) []string {
	env := make([]string, 0, len(cfg.Environment)+len(state))
	for k, v := range cfg.Environment {
		env = append(env, k+"="+v)
	}
	for k, v := range state {
		switch v.(type) {
		case string, float64, bool:
		default:
			continue
		}
		env = append(env, EnvPrefix+envName(k)+"="+domain.ToString(v))
	}
	return env
}

func envName(key string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func parseOutput(output string) map[string]any {
	trimmed := strings.TrimSpace(output)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			return obj
		}
	}
	return map[string]any{OutputKey: trimmed}
}

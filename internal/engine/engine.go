/*
Package engine drives the external compose engine through spawned processes.

The engine is treated as an opaque oracle of live project state: this package
lists registered compose projects (including stopped ones) and invokes
lifecycle verbs, but never interprets definition file content. Two CLI
dialects are supported, the `docker compose` plugin and the standalone
`docker-compose` binary; a successful probe is cached for the process
lifetime, a failed one is retried on the next call.
*/
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/berthd/berth/internal/process"
)

// ErrEngineUnavailable is returned when neither compose dialect responds to
// a version probe.
var ErrEngineUnavailable = errors.New("no compose engine available")

// Record is one live entry from the engine's project listing.
//
// ConfigFiles is informational only: the paths are reported by the engine
// from its own labels and are never opened, read, or validated by this core.
type Record struct {
	// Name is the compose project name.
	Name string

	// RawStatus is the opaque status string as reported, e.g. "running(3)".
	RawStatus string

	// ConfigFiles lists the definition paths the engine has on record.
	ConfigFiles []string
}

// Result captures a completed lifecycle invocation.
type Result struct {
	// ExitCode is the engine process exit code.
	ExitCode int

	// Stdout and Stderr contain the captured output.
	Stdout string
	Stderr string

	// Duration is how long the invocation took.
	Duration time.Duration

	// Command is the full command line, for diagnostics.
	Command string
}

// Target identifies the project a lifecycle verb acts on. File and Dir are
// set for verbs that need the definition file; Name alone suffices for verbs
// the engine resolves from its own state.
type Target struct {
	Name string
	File string
	Dir  string
}

// dialect is one way of spelling the compose CLI.
type dialect struct {
	binary string
	prefix []string
}

func (d dialect) render(args []string) (string, []string) {
	return d.binary, append(append([]string{}, d.prefix...), args...)
}

// Engine lists compose projects and runs lifecycle commands.
//
// # Thread Safety
//
// Safe for concurrent use. The dialect probe is serialized by a mutex;
// listing and invocation hold no shared mutable state beyond it.
type Engine struct {
	runner  process.Runner
	timeout time.Duration
	log     *slog.Logger

	probeMu sync.Mutex
	dialect *dialect
}

// New creates an Engine. timeout bounds every spawned process; a timed-out
// process counts as a failure, not a hang.
func New(runner process.Runner, timeout time.Duration, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		runner:  runner,
		timeout: timeout,
		log:     log,
	}
}

// resolveDialect probes for an available compose CLI, preferring the plugin
// form. Only a successful choice is cached: a failed probe (daemon briefly
// down, canceled context) is retried on the next call rather than pinning
// ErrEngineUnavailable for the process lifetime. Caller cancellation is
// propagated as-is so it is never mistaken for an unavailable engine.
func (e *Engine) resolveDialect(ctx context.Context) (dialect, error) {
	e.probeMu.Lock()
	defer e.probeMu.Unlock()

	if e.dialect != nil {
		return *e.dialect, nil
	}

	candidates := []dialect{
		{binary: "docker", prefix: []string{"compose"}},
		{binary: "docker-compose"},
	}
	for _, cand := range candidates {
		name, args := cand.render([]string{"version"})
		if _, _, _, err := e.run(ctx, "", name, args); err == nil {
			chosen := cand
			e.dialect = &chosen
			e.log.Debug("compose dialect selected", "binary", name, "prefix", strings.Join(cand.prefix, " "))
			return chosen, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dialect{}, ctxErr
		}
	}
	return dialect{}, ErrEngineUnavailable
}

// List returns all compose projects the engine knows about, including those
// whose containers are stopped or removed. A non-nil error means the engine
// side of discovery is unavailable, which callers must surface as a health
// signal rather than an empty project list.
func (e *Engine) List(ctx context.Context) ([]Record, error) {
	d, err := e.resolveDialect(ctx)
	if err != nil {
		return nil, err
	}

	name, args := d.render([]string{"ls", "-a", "--format", "json"})
	stdout, _, _, err := e.run(ctx, "", name, args)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	records, err := parseProjectList(stdout)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return records, nil
}

// Invoke runs a lifecycle verb against a target. Verbs that need the
// definition file run with -f in the project directory; everything else runs
// by project name with -p. The caller has already classified the verb, so
// an empty Target.File here means a name-addressed invocation.
//
// The Result is returned for failed invocations too, so callers can relay
// the engine's stderr to the operator.
func (e *Engine) Invoke(ctx context.Context, verb string, target Target) (*Result, error) {
	d, err := e.resolveDialect(ctx)
	if err != nil {
		return nil, err
	}

	var addressed []string
	dir := ""
	if target.File != "" {
		addressed = append(addressed, "-f", target.File, "--project-directory", target.Dir)
		dir = target.Dir
	} else {
		addressed = append(addressed, "-p", target.Name)
	}
	addressed = append(addressed, verbArgs(verb)...)

	name, args := d.render(addressed)
	cmdLine := name + " " + strings.Join(args, " ")
	e.log.Info("invoking engine", "verb", verb, "project", target.Name, "command", cmdLine)

	start := time.Now()
	stdout, stderr, exitCode, err := e.run(ctx, dir, name, args)

	result := &Result{
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: time.Since(start),
		Command:  cmdLine,
	}
	if err != nil {
		return result, fmt.Errorf("%s %s: %w", verb, target.Name, err)
	}
	return result, nil
}

// run executes one engine process under the configured timeout.
func (e *Engine) run(ctx context.Context, dir, name string, args []string) (string, string, int, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.runner.Run(runCtx, dir, name, args...)
}

// verbArgs maps a lifecycle verb to its argument form. up always runs
// detached; logs returns a bounded tail instead of following.
func verbArgs(verb string) []string {
	switch verb {
	case "up":
		return []string{"up", "-d"}
	case "logs":
		return []string{"logs", "--no-color", "--tail", "100"}
	case "rm":
		return []string{"rm", "-f"}
	default:
		return []string{verb}
	}
}

// lsEntry mirrors one element of `compose ls --format json` output.
type lsEntry struct {
	Name        string `json:"Name"`
	Status      string `json:"Status"`
	ConfigFiles string `json:"ConfigFiles"`
}

// parseProjectList decodes the listing. Both dialects emit a JSON array;
// some legacy builds emit one JSON object per line, so that shape is accepted
// too. Entries without a name are dropped rather than failing the listing.
func parseProjectList(output string) ([]Record, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return []Record{}, nil
	}

	var entries []lsEntry
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		// Line-delimited fallback.
		for _, line := range strings.Split(output, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var entry lsEntry
			if lineErr := json.Unmarshal([]byte(line), &entry); lineErr != nil {
				return nil, fmt.Errorf("parse engine output: %w", err)
			}
			entries = append(entries, entry)
		}
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}
		records = append(records, Record{
			Name:        entry.Name,
			RawStatus:   entry.Status,
			ConfigFiles: splitConfigFiles(entry.ConfigFiles),
		})
	}
	return records, nil
}

// splitConfigFiles splits the engine's delimited config-file field. Comma is
// the usual delimiter; semicolons appear in some engine builds.
func splitConfigFiles(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || r == ';'
	})
	files := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			files = append(files, p)
		}
	}
	return files
}

package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berthd/berth/internal/process"
)

const testTimeout = 5 * time.Second

// pluginRunner answers as a host where `docker compose` works.
func pluginRunner(listOutput string) *process.MockRunner {
	return &process.MockRunner{
		RunFunc: func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
			joined := name + " " + strings.Join(args, " ")
			switch {
			case joined == "docker compose version":
				return "Docker Compose version v2.24.0", "", 0, nil
			case strings.HasPrefix(joined, "docker compose ls"):
				return listOutput, "", 0, nil
			default:
				return "", "", 0, nil
			}
		},
	}
}

func TestEngine_DialectProbe(t *testing.T) {
	t.Run("plugin preferred", func(t *testing.T) {
		runner := pluginRunner("[]")
		e := New(runner, testTimeout, nil)

		_, err := e.List(context.Background())
		require.NoError(t, err)

		calls := runner.GetCalls()
		require.Len(t, calls, 2)
		assert.Equal(t, "docker", calls[0].Name)
		assert.Equal(t, []string{"compose", "version"}, calls[0].Args)
		assert.Equal(t, []string{"compose", "ls", "-a", "--format", "json"}, calls[1].Args)
	})

	t.Run("standalone fallback", func(t *testing.T) {
		runner := &process.MockRunner{
			RunFunc: func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
				if name == "docker" {
					return "", "unknown command", 1, errors.New("exit status 1")
				}
				if strings.Join(args, " ") == "version" {
					return "docker-compose version 1.29.2", "", 0, nil
				}
				return "[]", "", 0, nil
			},
		}
		e := New(runner, testTimeout, nil)

		_, err := e.List(context.Background())
		require.NoError(t, err)

		calls := runner.GetCalls()
		last := calls[len(calls)-1]
		assert.Equal(t, "docker-compose", last.Name)
		assert.Equal(t, []string{"ls", "-a", "--format", "json"}, last.Args)
	})

	t.Run("neither available", func(t *testing.T) {
		runner := &process.MockRunner{
			RunFunc: func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
				return "", "not found", 127, errors.New("executable not found")
			},
		}
		e := New(runner, testTimeout, nil)

		_, err := e.List(context.Background())
		require.ErrorIs(t, err, ErrEngineUnavailable)
	})

	t.Run("failed probe retried on next call", func(t *testing.T) {
		var calls atomic.Int64
		runner := &process.MockRunner{
			RunFunc: func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
				joined := name + " " + strings.Join(args, " ")
				if strings.Contains(joined, "version") {
					// Daemon down on first touch, back for the retry.
					if calls.Add(1) <= 2 {
						return "", "cannot connect", 1, errors.New("exit status 1")
					}
					return "ok", "", 0, nil
				}
				return "[]", "", 0, nil
			},
		}
		e := New(runner, testTimeout, nil)

		_, err := e.List(context.Background())
		require.ErrorIs(t, err, ErrEngineUnavailable)

		_, err = e.List(context.Background())
		require.NoError(t, err, "a transient probe failure must not be pinned for the process lifetime")
	})

	t.Run("canceled context not reported as unavailable", func(t *testing.T) {
		runner := &process.MockRunner{
			RunFunc: func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
				if ctx.Err() != nil {
					return "", "", -1, ctx.Err()
				}
				if strings.Contains(strings.Join(args, " "), "version") {
					return "ok", "", 0, nil
				}
				return "[]", "", 0, nil
			},
		}
		e := New(runner, testTimeout, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := e.List(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrEngineUnavailable)

		// The canceled probe left nothing cached; a live context succeeds
		// on the same engine.
		_, err = e.List(context.Background())
		require.NoError(t, err)
	})

	t.Run("probe runs once", func(t *testing.T) {
		runner := pluginRunner("[]")
		e := New(runner, testTimeout, nil)

		for i := 0; i < 3; i++ {
			_, err := e.List(context.Background())
			require.NoError(t, err)
		}
		// 1 probe + 3 listings.
		assert.Equal(t, 4, runner.CallCount())
	})
}

func TestEngine_List(t *testing.T) {
	t.Run("json array", func(t *testing.T) {
		runner := pluginRunner(`[
			{"Name":"shop","Status":"running(3)","ConfigFiles":"/srv/shop/compose.yml"},
			{"Name":"blog","Status":"exited(2)","ConfigFiles":"/srv/blog/a.yml,/srv/blog/b.yml"},
			{"Name":"","Status":"running(1)","ConfigFiles":""}
		]`)
		e := New(runner, testTimeout, nil)

		records, err := e.List(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2, "nameless entries are dropped")

		assert.Equal(t, "shop", records[0].Name)
		assert.Equal(t, "running(3)", records[0].RawStatus)
		assert.Equal(t, []string{"/srv/shop/compose.yml"}, records[0].ConfigFiles)
		assert.Equal(t, []string{"/srv/blog/a.yml", "/srv/blog/b.yml"}, records[1].ConfigFiles)
	})

	t.Run("line delimited fallback", func(t *testing.T) {
		runner := pluginRunner(
			`{"Name":"shop","Status":"running(1)","ConfigFiles":""}` + "\n" +
				`{"Name":"blog","Status":"exited(0)","ConfigFiles":""}` + "\n")
		e := New(runner, testTimeout, nil)

		records, err := e.List(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "blog", records[1].Name)
	})

	t.Run("empty output", func(t *testing.T) {
		runner := pluginRunner("")
		e := New(runner, testTimeout, nil)

		records, err := e.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("unparsable output", func(t *testing.T) {
		runner := pluginRunner("NAME  STATUS\nshop  running")
		e := New(runner, testTimeout, nil)

		_, err := e.List(context.Background())
		require.Error(t, err)
	})

	t.Run("listing failure", func(t *testing.T) {
		runner := &process.MockRunner{
			RunFunc: func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
				if strings.Contains(strings.Join(args, " "), "version") {
					return "ok", "", 0, nil
				}
				return "", "cannot connect to daemon", 1, errors.New("exit status 1")
			},
		}
		e := New(runner, testTimeout, nil)

		_, err := e.List(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrEngineUnavailable, "a reachable engine that fails to list is not 'unavailable'")
	})
}

func TestEngine_Invoke(t *testing.T) {
	t.Run("file addressed verb", func(t *testing.T) {
		runner := pluginRunner("[]")
		e := New(runner, testTimeout, nil)

		result, err := e.Invoke(context.Background(), "up", Target{
			Name: "shop",
			File: "/srv/shop/compose.yml",
			Dir:  "/srv/shop",
		})
		require.NoError(t, err)
		require.NotNil(t, result)

		calls := runner.GetCalls()
		last := calls[len(calls)-1]
		assert.Equal(t, "/srv/shop", last.Dir, "file verbs run in the project directory")
		assert.Equal(t, []string{
			"compose", "-f", "/srv/shop/compose.yml", "--project-directory", "/srv/shop", "up", "-d",
		}, last.Args)
	})

	t.Run("name addressed verb", func(t *testing.T) {
		runner := pluginRunner("[]")
		e := New(runner, testTimeout, nil)

		_, err := e.Invoke(context.Background(), "stop", Target{Name: "shop"})
		require.NoError(t, err)

		calls := runner.GetCalls()
		last := calls[len(calls)-1]
		assert.Equal(t, "", last.Dir)
		assert.Equal(t, []string{"compose", "-p", "shop", "stop"}, last.Args)
	})

	t.Run("verb argument forms", func(t *testing.T) {
		tests := []struct {
			verb string
			want []string
		}{
			{"up", []string{"up", "-d"}},
			{"logs", []string{"logs", "--no-color", "--tail", "100"}},
			{"rm", []string{"rm", "-f"}},
			{"restart", []string{"restart"}},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, verbArgs(tt.verb), "verb %s", tt.verb)
		}
	})

	t.Run("failure still returns result", func(t *testing.T) {
		runner := &process.MockRunner{
			RunFunc: func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
				if strings.Contains(strings.Join(args, " "), "version") {
					return "ok", "", 0, nil
				}
				return "partial", "no such service", 1, errors.New("exit status 1")
			},
		}
		e := New(runner, testTimeout, nil)

		result, err := e.Invoke(context.Background(), "stop", Target{Name: "ghost"})
		require.Error(t, err)
		require.NotNil(t, result)
		assert.Equal(t, 1, result.ExitCode)
		assert.Equal(t, "partial", result.Stdout)
		assert.Equal(t, "no such service", result.Stderr)
		assert.Contains(t, result.Command, "stop")
	})
}

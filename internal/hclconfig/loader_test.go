package hclconfig

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/maprgate/internal/catalog"
	"github.com/vk/maprgate/internal/config"
	"github.com/vk/maprgate/internal/ctxlog"
)

func loadString(t *testing.T, hclContent string) (*config.Model, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(hclContent), 0644))

	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
	return NewLoader().Load(ctx, path)
}

func TestLoad_ServerBlock(t *testing.T) {
	model, err := loadString(t, `
		server {
			listen_addr     = ":9090"
			request_timeout = "45s"
			workers         = 8
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, ":9090", model.Server.ListenAddr)
	assert.Equal(t, 45*time.Second, model.Server.RequestTimeout)
	assert.Equal(t, 8, model.Server.Workers)
}

func TestLoad_DefaultsWithoutServerBlock(t *testing.T) {
	model, err := loadString(t, `
		credential "alice" {
			password_hash = "$2a$10$abcdefghijklmnopqrstuv"
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultListenAddr, model.Server.ListenAddr)
	assert.Equal(t, config.DefaultRequestTimeout, model.Server.RequestTimeout)
	assert.Equal(t, config.DefaultWorkers, model.Server.Workers)
}

func TestLoad_Credentials(t *testing.T) {
	model, err := loadString(t, `
		credential "alice" {
			display_name  = "Alice Example"
			password_hash = "hash-a"
		}
		credential "bob" {
			password_hash = "hash-b"
		}
	`)
	require.NoError(t, err)
	require.Len(t, model.Credentials, 2)
	assert.Equal(t, "alice", model.Credentials[0].Username)
	assert.Equal(t, "Alice Example", model.Credentials[0].DisplayName)
	assert.Equal(t, "hash-b", model.Credentials[1].PasswordHash)
}

func TestLoad_Agents(t *testing.T) {
	model, err := loadString(t, `
		agent "browser" {}

		agent "inventory" {
			settings {
				upstream_url = "http://stock.internal:8000"
				timeout      = "5s"
			}
		}

		agent "legacy" {
			enabled = false
		}
	`)
	require.NoError(t, err)
	require.Len(t, model.Agents, 3)

	assert.True(t, model.Agents["browser"].Enabled, "enabled defaults to true")
	assert.Nil(t, model.Agents["browser"].Settings)

	inv := model.Agents["inventory"]
	assert.True(t, inv.Enabled)
	assert.Equal(t, "http://stock.internal:8000", inv.Settings["upstream_url"])
	assert.Equal(t, "5s", inv.Settings["timeout"])

	assert.False(t, model.Agents["legacy"].Enabled)
}

func TestLoad_SettingsTypes(t *testing.T) {
	model, err := loadString(t, `
		agent "tuned" {
			settings {
				limit   = 42
				ratio   = 0.5
				flag    = true
				aliases = ["a", "b"]
			}
		}
	`)
	require.NoError(t, err)

	want := map[string]any{
		"limit":   float64(42),
		"ratio":   0.5,
		"flag":    true,
		"aliases": []any{"a", "b"},
	}
	if diff := cmp.Diff(want, model.Agents["tuned"].Settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Products(t *testing.T) {
	model, err := loadString(t, `
		product "p1" {
			name     = "Test Widget"
			category = "Gadgets"
			price    = 19.99
			rating   = 4.1
			features = ["small", "cheap"]
			stock    = 7
			tags     = ["widget"]
		}
	`)
	require.NoError(t, err)

	want := []catalog.Product{{
		ID:       "p1",
		Name:     "Test Widget",
		Category: "Gadgets",
		Price:    19.99,
		Rating:   4.1,
		Features: []string{"small", "cheap"},
		Stock:    7,
		Tags:     []string{"widget"},
	}}
	if diff := cmp.Diff(want, model.Catalog); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`
		agent "browser" {}
	`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`
		credential "alice" {
			password_hash = "hash-a"
		}
	`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
	model, err := NewLoader().Load(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, model.Agents, 1)
	assert.Len(t, model.Credentials, 1)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
		_, err := NewLoader().Load(ctx, "/does/not/exist")
		assert.ErrorContains(t, err, "failed to stat configuration path")
	})

	t.Run("no hcl files in directory", func(t *testing.T) {
		ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
		_, err := NewLoader().Load(ctx, t.TempDir())
		assert.ErrorContains(t, err, "no .hcl configuration files found")
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := loadString(t, `agent "broken" {`)
		assert.ErrorContains(t, err, "failed to parse")
	})

	t.Run("invalid request_timeout", func(t *testing.T) {
		_, err := loadString(t, `
			server {
				request_timeout = "soon"
			}
		`)
		assert.ErrorContains(t, err, "invalid request_timeout")
	})
}

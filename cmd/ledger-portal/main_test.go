// ABOUTME: Tests for CLI helpers: config paths, generated files, tokens and logging
// ABOUTME: Generated config and presets are parsed back through the config package

package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/ledger-portal/internal/auth"
	"github.com/2389/ledger-portal/internal/config"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv("LEDGER_PORTAL_CONFIG", "/etc/portal.yaml")
	assert.Equal(t, "/etc/portal.yaml", getConfigPath())

	t.Setenv("LEDGER_PORTAL_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/ledger-portal/portal.yaml", getConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/portal")
	assert.Equal(t, "/home/portal/.config/ledger-portal/portal.yaml", getConfigPath())
}

func TestGetDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, "/data/ledger-portal", getDataPath())
}

func testAnswers(t *testing.T) initAnswers {
	t.Helper()
	dir := t.TempDir()
	secret, err := generateSecret()
	require.NoError(t, err)
	return initAnswers{
		HTTPAddr:           "localhost:3000",
		APIAddr:            "localhost:3001",
		DBPath:             filepath.Join(dir, "portal.db"),
		UploadsDir:         filepath.Join(dir, "uploads"),
		Channel:            "my-channel1",
		TransferChaincode:  "transfer-cc",
		EmissionsChaincode: "emissions-cc",
		PresetsPath:        filepath.Join(dir, "presets.toml"),
		CryptoRoot:         "crypto-config",
		DefaultPreset:      "Org1",
		JWTSecret:          secret,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

func TestRenderConfig_Parses(t *testing.T) {
	a := testAnswers(t)

	cfg, err := config.Parse([]byte(renderConfig(a)))
	require.NoError(t, err)

	assert.Equal(t, "localhost:3000", cfg.Server.HTTPAddr)
	assert.Equal(t, "localhost:3001", cfg.Server.APIAddr)
	assert.Equal(t, a.DBPath, cfg.Database.Path)
	assert.Equal(t, "Org1", cfg.Ledger.DefaultPreset)
	assert.Equal(t, a.PresetsPath, cfg.Ledger.PresetsFile)
	assert.Equal(t, config.DefaultLedgerTimeout, cfg.Ledger.Timeout)
	assert.Equal(t, a.JWTSecret, cfg.API.JWTSecret)
	assert.False(t, cfg.Tailscale.Enabled)
}

func TestRenderConfig_Tailscale(t *testing.T) {
	a := testAnswers(t)
	a.Tailscale = true
	a.TSHostname = "ledger-portal"
	a.TSFunnel = true

	cfg, err := config.Parse([]byte(renderConfig(a)))
	require.NoError(t, err)
	assert.True(t, cfg.Tailscale.Enabled)
	assert.Equal(t, "ledger-portal", cfg.Tailscale.Hostname)
	assert.True(t, cfg.Tailscale.Funnel)
}

func TestRenderPresets_Loads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	require.NoError(t, os.WriteFile(path, []byte(renderPresets("crypto-config")), 0644))

	presets, err := config.LoadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Org1", "Org2", "Org3"}, presets.Names())

	org2, err := presets.Lookup("Org2")
	require.NoError(t, err)
	assert.Equal(t, "localhost:7061", org2.Address)
	assert.Equal(t, "Org2MSP", org2.OrganizationID)
	assert.Equal(t, "peer0.org2.example.com", org2.ServerNameOverride)
	assert.True(t, strings.HasPrefix(org2.CertificatePath, filepath.Join(filepath.Dir(path), "crypto-config")))
}

func TestIssueToken(t *testing.T) {
	secret, err := generateSecret()
	require.NoError(t, err)

	token, expiresAt, err := issueToken(secret, "erp-sync", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	verifier, err := auth.NewJWTVerifier([]byte(secret))
	require.NoError(t, err)
	sub, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "erp-sync", sub)

	_, _, err = issueToken("short", "erp-sync", time.Hour)
	assert.Error(t, err)
}

func TestSplitSubject(t *testing.T) {
	sub, rest := splitSubject([]string{"erp-sync", "--ttl", "1h"})
	assert.Equal(t, "erp-sync", sub)
	assert.Equal(t, []string{"--ttl", "1h"}, rest)

	sub, rest = splitSubject([]string{"--ttl", "1h", "erp-sync"})
	assert.Equal(t, "", sub)
	assert.Len(t, rest, 3)
}

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("letmein")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("letmein")))

	_, err = hashPassword("")
	assert.Error(t, err)
}

func TestRunHashPassword_NoTrailingNewline(t *testing.T) {
	assert.NoError(t, runHashPassword(bytes.NewBufferString("letmein")))
	assert.Error(t, runHashPassword(bytes.NewBufferString("")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestColorHandler_Derived(t *testing.T) {
	logger := setupLogger(config.LoggingConfig{Level: "warn"})

	h := logger.Handler()
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	derived := logger.With("component", "ledger").WithGroup("req").Handler().(*colorHandler)
	require.Len(t, derived.attrs, 1)
	assert.Equal(t, "component", derived.attrs[0].Key)
	assert.Equal(t, []string{"req"}, derived.groups)
	assert.Same(t, h.(*colorHandler).mu, derived.mu)
}

func TestYes(t *testing.T) {
	assert.True(t, yes("Y"))
	assert.True(t, yes("yes"))
	assert.False(t, yes("no"))
	assert.False(t, yes(""))
}

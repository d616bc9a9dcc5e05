// ABOUTME: Tests for the portal orchestrator lifecycle
// ABOUTME: Runs real listeners on free ports with a fake ledger dialer

package portal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ledger-portal/internal/config"
	"github.com/2389/ledger-portal/internal/ledger"
)

type stubContract struct{}

func (stubContract) Evaluate(context.Context, string, ledger.Call) ([]byte, error) {
	return []byte("[]"), nil
}

func (stubContract) Submit(context.Context, string, ledger.Call) ([]byte, error) {
	return []byte("ok"), nil
}

type stubConnection struct{}

func (stubConnection) Contract(string, string) ledger.Contract { return stubContract{} }
func (stubConnection) Close() error                            { return nil }

type stubDialer struct {
	mu     sync.Mutex
	dialed []ledger.GatewayConfig
	err    error
}

func (d *stubDialer) Dial(_ context.Context, cfg ledger.GatewayConfig) (ledger.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, cfg)
	if d.err != nil {
		return nil, d.err
	}
	return stubConnection{}, nil
}

// freeAddr finds an available loopback address.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find available port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// testConfig creates a minimal config for testing with available ports.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			HTTPAddr: freeAddr(t),
			APIAddr:  freeAddr(t),
		},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Ledger: config.LedgerConfig{
			Channel:            "my-channel1",
			TransferChaincode:  "transfer-cc",
			EmissionsChaincode: "emissions-cc",
			CollectionSuffix:   config.DefaultCollectionSuffix,
			Timeout:            5 * time.Second,
			ReservationTTL:     time.Minute,
		},
		Uploads: config.UploadsConfig{Dir: t.TempDir(), MaxSizeMB: 1},
		Session: config.SessionConfig{CookieName: "portal_test", TTL: time.Hour},
	}
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePresetsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.toml")
	content := `
crypto_root = "/crypto"

[presets.Org1]
gateway_address = "localhost:7041"
organization_id = "Org1MSP"
certificate_path = "org1/cert.pem"
private_key_path = "org1/key.pem"
tls_root_cert_path = "org1/ca.crt"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNew_Unconnected(t *testing.T) {
	dialer := &stubDialer{}
	p, err := newPortal(testConfig(t), dialer, testLogger())
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, connected := p.ledger.Current()
	assert.False(t, connected)
	assert.Empty(t, dialer.dialed)
	assert.NotNil(t, p.apiServer)
}

func TestNew_NoAPIAddr(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.APIAddr = ""

	p, err := newPortal(cfg, &stubDialer{}, testLogger())
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.Nil(t, p.apiServer)
}

func TestNew_DefaultPreset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.PresetsFile = writePresetsFile(t)
	cfg.Ledger.DefaultPreset = "Org1"
	dialer := &stubDialer{}

	p, err := newPortal(cfg, dialer, testLogger())
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	require.Len(t, dialer.dialed, 1)
	assert.Equal(t, "Org1MSP", dialer.dialed[0].OrganizationID)
	assert.Equal(t, "/crypto/org1/cert.pem", dialer.dialed[0].CertificatePath)

	gw, connected := p.ledger.Current()
	assert.True(t, connected)
	assert.Equal(t, "localhost:7041", gw.Address)
	assert.Contains(t, p.presets, "Org1")
}

func TestNew_UnknownDefaultPreset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.PresetsFile = writePresetsFile(t)
	cfg.Ledger.DefaultPreset = "Org9"

	_, err := newPortal(cfg, &stubDialer{}, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrUnknownPreset))
}

func TestNew_MissingPresetsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.PresetsFile = filepath.Join(t.TempDir(), "missing.toml")

	_, err := newPortal(cfg, &stubDialer{}, testLogger())
	require.Error(t, err)
}

func TestNew_InitialGatewayFailureKeepsRunning(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gateway = config.GatewayConfig{
		Address:         "localhost:7041",
		OrganizationID:  "Org1MSP",
		CertificatePath: "/c.pem",
		PrivateKeyPath:  "/k.pem",
		TLSRootCertPath: "/ca.crt",
	}
	dialer := &stubDialer{err: errors.New("no route to host")}

	p, err := newPortal(cfg, dialer, testLogger())
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.Len(t, dialer.dialed, 1)
	_, connected := p.ledger.Current()
	assert.False(t, connected)
}

func TestNew_WeakJWTSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.JWTSecret = "short"

	_, err := newPortal(cfg, &stubDialer{}, testLogger())
	require.Error(t, err)
}

// waitForHealth polls url until it answers 200 or the deadline passes.
func waitForHealth(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s never became healthy", url)
}

func TestRun_ServesPagesAndAPI(t *testing.T) {
	cfg := testConfig(t)
	p, err := newPortal(cfg, &stubDialer{}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	base := "http://" + cfg.Server.HTTPAddr
	waitForHealth(t, base+"/health")
	waitForHealth(t, "http://"+cfg.Server.APIAddr+"/health")

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Supply chain ledger portal")

	resp, err = http.Get(base + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Post("http://"+cfg.Server.APIAddr+"/overview", "application/json", strings.NewReader(`{"productID":"1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t)
	cfg.Server.HTTPAddr = ln.Addr().String()
	p, err := newPortal(cfg, &stubDialer{}, testLogger())
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	err = p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on HTTP address")
}

func TestHandleReady_Connected(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gateway = config.GatewayConfig{
		Address:         "localhost:7041",
		OrganizationID:  "Org1MSP",
		CertificatePath: "/c.pem",
		PrivateKeyPath:  "/k.pem",
		TLSRootCertPath: "/ca.crt",
	}
	p, err := newPortal(cfg, &stubDialer{}, testLogger())
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	p.handleReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready (Org1MSP @ localhost:7041)", rec.Body.String())
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	_, err := resolveTailscaleAuthKey("")
	assert.Error(t, err)

	key, err := resolveTailscaleAuthKey("tskey-config")
	require.NoError(t, err)
	assert.Equal(t, "tskey-config", key)

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	require.NoError(t, err)
	assert.Equal(t, "tskey-env", key)
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/portal/ts")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/portal/ts", dir)

	t.Setenv("HOME", "/home/portal")
	dir, err = resolveTailscaleStateDir("")
	require.NoError(t, err)
	assert.Equal(t, "/home/portal/.local/share/ledger-portal/tailscale", dir)
}

func TestAPITailnetPort(t *testing.T) {
	port, err := apiTailnetPort("0.0.0.0:3001")
	require.NoError(t, err)
	assert.Equal(t, ":3001", port)

	_, err = apiTailnetPort("localhost")
	assert.Error(t, err)

	_, err = apiTailnetPort("localhost:0")
	assert.Error(t, err)
}

func TestAppendCloseError(t *testing.T) {
	errs := appendCloseError(nil, "store close", nil)
	assert.Empty(t, errs)

	errs = appendCloseError(errs, "store close", errors.New("boom"))
	require.Len(t, errs, 1)
	assert.Equal(t, "store close: boom", errs[0].Error())
}

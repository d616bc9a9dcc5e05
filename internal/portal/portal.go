// ABOUTME: Portal orchestrator wiring store, ledger service, pages and JSON API
// ABOUTME: Manages listeners (TCP or Tailscale), background sweeping and graceful shutdown

package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/ledger-portal/internal/api"
	"github.com/2389/ledger-portal/internal/auth"
	"github.com/2389/ledger-portal/internal/config"
	"github.com/2389/ledger-portal/internal/ledger"
	"github.com/2389/ledger-portal/internal/session"
	"github.com/2389/ledger-portal/internal/store"
	"github.com/2389/ledger-portal/internal/upload"
	"github.com/2389/ledger-portal/internal/webui"
)

// sessionSweepInterval is how often expired flash sessions are deleted.
const sessionSweepInterval = 10 * time.Minute

// Portal orchestrates the ledger-portal server components.
type Portal struct {
	config      *config.Config
	store       store.Store
	ledger      *ledger.Service
	sessions    *session.Manager
	presets     map[string]ledger.GatewayConfig
	httpServer  *http.Server
	apiServer   *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// initStore creates the SQLite store, honoring LEDGER_PORTAL_DB_PATH.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("LEDGER_PORTAL_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// toLedgerGateway converts configured gateway settings to the ledger's form.
func toLedgerGateway(c config.GatewayConfig) ledger.GatewayConfig {
	return ledger.GatewayConfig{
		Address:            c.Address,
		OrganizationID:     c.OrganizationID,
		CertificatePath:    c.CertificatePath,
		PrivateKeyPath:     c.PrivateKeyPath,
		TLSRootCertPath:    c.TLSRootCertPath,
		ServerNameOverride: c.ServerNameOverride,
	}
}

// loadPresets reads the presets file, if one is configured.
func loadPresets(cfg *config.Config) (map[string]ledger.GatewayConfig, error) {
	out := make(map[string]ledger.GatewayConfig)
	if cfg.Ledger.PresetsFile == "" {
		return out, nil
	}

	presets, err := config.LoadPresets(cfg.Ledger.PresetsFile)
	if err != nil {
		return nil, err
	}
	for name, p := range presets {
		out[name] = toLedgerGateway(p)
	}
	return out, nil
}

// initialGateway returns the connection to open at startup, if any.
func initialGateway(cfg *config.Config, presets map[string]ledger.GatewayConfig) (ledger.GatewayConfig, bool, error) {
	if cfg.Gateway.Address != "" {
		return toLedgerGateway(cfg.Gateway), true, nil
	}
	if cfg.Ledger.DefaultPreset != "" {
		p, ok := presets[cfg.Ledger.DefaultPreset]
		if !ok {
			return ledger.GatewayConfig{}, false, fmt.Errorf("%w: %q", config.ErrUnknownPreset, cfg.Ledger.DefaultPreset)
		}
		return p, true, nil
	}
	return ledger.GatewayConfig{}, false, nil
}

// createVerifier returns a JWT verifier for the API, or nil when no secret
// is configured.
func createVerifier(cfg *config.Config, logger *slog.Logger) (auth.TokenVerifier, error) {
	if cfg.API.JWTSecret == "" {
		if cfg.Server.APIAddr != "" {
			logger.Warn("api auth disabled - no jwt_secret configured")
		}
		return nil, nil
	}
	v, err := auth.NewJWTVerifier([]byte(cfg.API.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("creating JWT verifier: %w", err)
	}
	return v, nil
}

// New creates a portal that connects to Fabric gateways over gRPC.
func New(cfg *config.Config, logger *slog.Logger) (*Portal, error) {
	return newPortal(cfg, ledger.FabricDialer{}, logger)
}

func newPortal(cfg *config.Config, dialer ledger.Dialer, logger *slog.Logger) (*Portal, error) {
	presets, err := loadPresets(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading presets: %w", err)
	}
	initial, connect, err := initialGateway(cfg, presets)
	if err != nil {
		return nil, err
	}
	verifier, err := createVerifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	svc := ledger.NewService(dialer, ledger.Options{
		Contracts: ledger.ContractNames{
			Channel:            cfg.Ledger.Channel,
			TransferChaincode:  cfg.Ledger.TransferChaincode,
			EmissionsChaincode: cfg.Ledger.EmissionsChaincode,
		},
		CollectionSuffix: cfg.Ledger.CollectionSuffix,
		Timeout:          cfg.Ledger.Timeout,
		ReservationTTL:   cfg.Ledger.ReservationTTL,
	}, logger.With("component", "ledger"))

	p := &Portal{
		config:  cfg,
		store:   s,
		ledger:  svc,
		presets: presets,
		logger:  logger,
	}

	p.sessions = session.NewManager(s, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	}, logger.With("component", "session"))

	uploads := upload.New(cfg.Uploads.Dir, cfg.Uploads.MaxSizeMB<<20)

	ui, err := webui.New(svc, p.sessions, s, uploads, webui.Config{
		Presets:              presets,
		SettingsPasswordHash: cfg.Settings.PasswordHash,
	}, logger.With("component", "webui"))
	if err != nil {
		p.closeAll()
		return nil, fmt.Errorf("creating web UI: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", p.handleHealth)
	mux.HandleFunc("GET /health/ready", p.handleReady)
	ui.RegisterRoutes(mux)

	p.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.APIAddr != "" {
		apiHandler := api.New(svc, s, uploads, presets, verifier, logger.With("component", "api"))
		p.apiServer = &http.Server{
			Addr:              cfg.Server.APIAddr,
			Handler:           apiHandler.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	if connect {
		p.connectInitial(initial)
	}

	return p, nil
}

// connectInitial opens the startup connection. A failure leaves the portal
// running unconnected so the settings page can fix it.
func (p *Portal) connectInitial(cfg ledger.GatewayConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.ledger.Configure(ctx, cfg); err != nil {
		p.logger.Warn("initial gateway connection failed, configure it from the settings page",
			append([]any{"address", cfg.Address}, ledger.ErrorAttrs(err)...)...)
	}
}

// setupTCPListeners creates standard TCP listeners for the pages and the API.
func (p *Portal) setupTCPListeners() (httpLn, apiLn net.Listener, err error) {
	p.logger.Info("starting portal",
		"http_addr", p.config.Server.HTTPAddr,
		"api_addr", p.config.Server.APIAddr,
	)

	httpLn, err = net.Listen("tcp", p.config.Server.HTTPAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	if p.apiServer == nil {
		return httpLn, nil, nil
	}

	apiLn, err = net.Listen("tcp", p.config.Server.APIAddr)
	if err != nil {
		_ = httpLn.Close()
		return nil, nil, fmt.Errorf("listening on API address: %w", err)
	}
	return httpLn, apiLn, nil
}

// setupListeners creates listeners based on configuration (Tailscale or TCP).
func (p *Portal) setupListeners(ctx context.Context) (httpLn, apiLn net.Listener, err error) {
	if p.config.Tailscale.Enabled {
		p.warnIgnoredAddresses()
		return p.setupTailscaleListeners(ctx)
	}
	return p.setupTCPListeners()
}

// warnIgnoredAddresses logs a warning if server addresses are configured but Tailscale is enabled.
func (p *Portal) warnIgnoredAddresses() {
	if p.config.Server.HTTPAddr != "" || p.config.Server.APIAddr != "" {
		p.logger.Warn("server.http_addr and server.api_addr are ignored when tailscale is enabled",
			"http_addr", p.config.Server.HTTPAddr,
			"api_addr", p.config.Server.APIAddr,
		)
	}
}

// startServers starts the HTTP servers in goroutines, returning an error channel.
func (p *Portal) startServers(httpLn, apiLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		p.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := p.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	if apiLn != nil {
		go func() {
			p.logger.Info("API server listening", "addr", apiLn.Addr().String())
			if err := p.apiServer.Serve(apiLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("API server: %w", err)
			}
		}()
	}

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (p *Portal) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		p.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		p.logger.Error("server error", "error", err)
		p.drainErrors(errCh)
		return err
	}
}

// drainErrors drains any remaining errors from the channel.
func (p *Portal) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		p.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run starts the servers and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if a server fails.
func (p *Portal) Run(ctx context.Context) error {
	httpLn, apiLn, err := p.setupListeners(ctx)
	if err != nil {
		return err
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go p.sessions.RunSweeper(sweepCtx, sessionSweepInterval)

	errCh := p.startServers(httpLn, apiLn)
	serverErr := p.waitForShutdownSignal(ctx, errCh)

	stopSweeper()
	shutdownErr := p.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (p *Portal) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the servers and releases resources.
func (p *Portal) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down portal")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", p.httpServer.Shutdown(ctx))
	if p.apiServer != nil {
		errs = appendCloseError(errs, "API shutdown", p.apiServer.Shutdown(ctx))
	}
	if p.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", p.tsnetServer.Close())
	}
	errs = append(errs, p.closeAll()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// closeAll closes the ledger connection and the store.
func (p *Portal) closeAll() []error {
	var errs []error
	errs = appendCloseError(errs, "ledger close", p.ledger.Close())
	errs = appendCloseError(errs, "store close", p.store.Close())
	return errs
}

// handleHealth returns 200 OK if the server is alive.
func (p *Portal) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once a gateway connection is configured.
func (p *Portal) handleReady(w http.ResponseWriter, r *http.Request) {
	gw, ok := p.ledger.Current()
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no gateway configured"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%s @ %s)", gw.OrganizationID, gw.Address)
}

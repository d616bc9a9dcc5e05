// ABOUTME: Tailscale (tsnet) listeners for serving the portal on a tailnet
// ABOUTME: Pages on :80, :443 with tailnet certs, or public Funnel; the API on its configured port

package portal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/ledger-portal/internal/config"
)

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "ledger-portal", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable (get one at https://login.tailscale.com/admin/settings/keys)")
	}
	return authKey, nil
}

// apiTailnetPort is the tailnet port for the API, taken from server.api_addr.
func apiTailnetPort(apiAddr string) (string, error) {
	_, port, err := net.SplitHostPort(apiAddr)
	if err != nil {
		return "", fmt.Errorf("parsing server.api_addr %q: %w", apiAddr, err)
	}
	if port == "" || port == "0" {
		return "", fmt.Errorf("server.api_addr %q needs a fixed port when tailscale is enabled", apiAddr)
	}
	return ":" + port, nil
}

// setupTailscaleListeners creates a tsnet server and returns listeners for the pages and the API.
func (p *Portal) setupTailscaleListeners(ctx context.Context) (httpLn, apiLn net.Listener, err error) {
	tsCfg := p.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, nil, err
	}

	p.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	p.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := p.tsnetServer.Up(ctx)
	if err != nil {
		_ = p.tsnetServer.Close()
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}
	p.logTailscaleStatus(tsCfg.Hostname, status)

	httpLn, err = p.createTailscaleHTTPListener(tsCfg)
	if err != nil {
		_ = p.tsnetServer.Close()
		return nil, nil, err
	}

	if p.apiServer == nil {
		return httpLn, nil, nil
	}

	port, err := apiTailnetPort(p.config.Server.APIAddr)
	if err == nil {
		apiLn, err = p.tsnetServer.Listen("tcp", port)
	}
	if err != nil {
		_ = httpLn.Close()
		_ = p.tsnetServer.Close()
		return nil, nil, fmt.Errorf("listening on tailscale API port: %w", err)
	}
	return httpLn, apiLn, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (p *Portal) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		p.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	p.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// createTailscaleHTTPListener creates the page listener based on config.
func (p *Portal) createTailscaleHTTPListener(tsCfg config.TailscaleConfig) (net.Listener, error) {
	switch {
	case tsCfg.Funnel:
		p.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := p.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			return nil, fmt.Errorf("listening on tailscale funnel port: %w", err)
		}
		return ln, nil
	case tsCfg.HTTPS:
		return p.createTailscaleTLSListener()
	default:
		ln, err := p.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}

// createTailscaleTLSListener creates a TLS listener using Tailscale's auto-provisioned certs.
func (p *Portal) createTailscaleTLSListener() (net.Listener, error) {
	p.logger.Info("enabling HTTPS with Tailscale certs on :443")
	ln, err := p.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := p.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

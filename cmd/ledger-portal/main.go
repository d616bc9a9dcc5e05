// ABOUTME: Entry point for the ledger-portal server and its operator commands
// ABOUTME: serve, init, health, token and hash-password subcommands

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/ledger-portal/internal/config"
	"github.com/2389/ledger-portal/internal/portal"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _          _                                     _        _
 | | ___  __| | __ _  ___ _ __      _ __   ___  _ __| |_ __ _| |
 | |/ _ \/ _' |/ _' |/ _ \ '__|____| '_ \ / _ \| '__| __/ _' | |
 | |  __/ (_| | (_| |  __/ | |_____| |_) | (_) | |  | || (_| | |
 |_|\___|\__,_|\__, |\___|_|       | .__/ \___/|_|   \__\__,_|_|
               |___/               |_|
`

// getConfigPath returns the path to the portal config file.
// Priority: LEDGER_PORTAL_CONFIG env var > XDG_CONFIG_HOME/ledger-portal/portal.yaml > ~/.config/ledger-portal/portal.yaml
func getConfigPath() string {
	if envPath := os.Getenv("LEDGER_PORTAL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "portal.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ledger-portal", "portal.yaml")
}

// getDataPath returns the path to the portal data directory.
// Priority: XDG_DATA_HOME/ledger-portal > ~/.local/share/ledger-portal
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "ledger-portal")
}

func usage() {
	fmt.Println("Usage: ledger-portal <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                        Start the portal")
	fmt.Println("  init                         Create config and presets files interactively")
	fmt.Println("  health                       Check portal health")
	fmt.Println("  token SUBJECT [--ttl 720h]   Issue a JSON API token")
	fmt.Println("  hash-password                Hash a settings password for settings.password_hash")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "token":
		err = runToken(os.Args[2:])
	case "hash-password":
		err = runHashPassword(os.Stdin)
	case "version", "--version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Pages:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	if cfg.Server.APIAddr != "" {
		fmt.Printf("API:       %s", cfg.Server.APIAddr)
		if cfg.API.JWTSecret == "" {
			yellow.Print(" [no auth]")
		}
		fmt.Println()
	} else {
		fmt.Println("API:       disabled")
	}
	green.Print("    ▶ ")
	fmt.Printf("Channel:   %s (%s, %s)\n", cfg.Ledger.Channel, cfg.Ledger.TransferChaincode, cfg.Ledger.EmissionsChaincode)

	switch {
	case cfg.Gateway.Address != "":
		green.Print("    ▶ ")
		fmt.Printf("Gateway:   %s @ %s\n", cfg.Gateway.OrganizationID, cfg.Gateway.Address)
	case cfg.Ledger.DefaultPreset != "":
		green.Print("    ▶ ")
		fmt.Printf("Gateway:   preset ")
		cyan.Println(cfg.Ledger.DefaultPreset)
	default:
		yellow.Print("    ▶ ")
		fmt.Println("Gateway:   not configured, use the settings page")
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	logger.Info("starting ledger-portal",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"api_addr", cfg.Server.APIAddr,
	)

	p, err := portal.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating portal: %w", err)
	}

	return p.Run(ctx)
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		fmt.Printf("healthy: %s\n", body)
		return nil
	case http.StatusServiceUnavailable:
		fmt.Printf("healthy, %s\n", body)
		return nil
	default:
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
}

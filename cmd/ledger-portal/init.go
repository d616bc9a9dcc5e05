// ABOUTME: Interactive init command writing a starter config and presets file
// ABOUTME: Generates an API signing secret and validates the result before writing

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389/ledger-portal/internal/config"
)

// initAnswers holds everything init asks for.
type initAnswers struct {
	HTTPAddr           string
	APIAddr            string
	DBPath             string
	UploadsDir         string
	Channel            string
	TransferChaincode  string
	EmissionsChaincode string
	PresetsPath        string
	CryptoRoot         string
	DefaultPreset      string
	JWTSecret          string
	Tailscale          bool
	TSHostname         string
	TSAuthKey          string
	TSEphemeral        bool
	TSFunnel           bool
	LogLevel           string
	LogFormat          string
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("ledger-portal configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	dataPath := getDataPath()

	outputFile := prompt(reader, "Config file path", defaultConfigPath)
	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	a := initAnswers{JWTSecret: secret}

	fmt.Println("\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, "Pages address", "localhost:3000")
	a.APIAddr = prompt(reader, "JSON API address (empty disables)", "localhost:3001")

	fmt.Println("\n--- Storage ---")
	a.DBPath = prompt(reader, "SQLite database path", filepath.Join(dataPath, "portal.db"))
	a.UploadsDir = prompt(reader, "Uploads directory", filepath.Join(dataPath, "uploads"))

	fmt.Println("\n--- Ledger ---")
	a.Channel = prompt(reader, "Channel", "my-channel1")
	a.TransferChaincode = prompt(reader, "Transfer chaincode", "transfer-cc")
	a.EmissionsChaincode = prompt(reader, "Emissions chaincode", "emissions-cc")
	a.PresetsPath = prompt(reader, "Gateway presets file", filepath.Join(filepath.Dir(outputFile), "presets.toml"))
	a.CryptoRoot = prompt(reader, "Crypto material root", "fablo-target/fabric-config/crypto-config")
	a.DefaultPreset = prompt(reader, "Connect at startup with preset (Org1/Org2/Org3, empty for none)", "Org1")

	fmt.Println("\n--- Tailscale Configuration ---")
	a.Tailscale = yes(prompt(reader, "Enable Tailscale?", "no"))
	if a.Tailscale {
		a.TSHostname = prompt(reader, "Tailscale hostname", "ledger-portal")
		a.TSAuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		a.TSEphemeral = yes(prompt(reader, "Ephemeral node?", "no"))
		a.TSFunnel = yes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, "Log format (text/json)", "text")

	content := renderConfig(a)
	if _, err := config.Parse([]byte(content)); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if _, err := os.Stat(a.PresetsPath); os.IsNotExist(err) {
		if err := os.WriteFile(a.PresetsPath, []byte(renderPresets(a.CryptoRoot)), 0644); err != nil {
			return fmt.Errorf("writing presets file: %w", err)
		}
		fmt.Printf("\nPresets written to %s\n", a.PresetsPath)
	}

	for _, dir := range []string{filepath.Dir(a.DBPath), a.UploadsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("Config written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", filepath.Dir(a.DBPath))
	fmt.Println("\nTo start the server:")
	fmt.Printf("  ledger-portal serve\n")

	return nil
}

func generateSecret() (string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(secretBytes), nil
}

func renderConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# ledger-portal configuration\n")
	cfg.WriteString("# Generated by ledger-portal init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", a.HTTPAddr))
	cfg.WriteString(fmt.Sprintf("  api_addr: %q\n", a.APIAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", a.DBPath))
	cfg.WriteString("\n")

	cfg.WriteString("ledger:\n")
	cfg.WriteString(fmt.Sprintf("  channel: %q\n", a.Channel))
	cfg.WriteString(fmt.Sprintf("  transfer_chaincode: %q\n", a.TransferChaincode))
	cfg.WriteString(fmt.Sprintf("  emissions_chaincode: %q\n", a.EmissionsChaincode))
	cfg.WriteString(fmt.Sprintf("  collection_suffix: %q\n", config.DefaultCollectionSuffix))
	cfg.WriteString(fmt.Sprintf("  timeout: %q\n", config.DefaultLedgerTimeout.String()))
	cfg.WriteString(fmt.Sprintf("  reservation_ttl: %q\n", config.DefaultReservationTTL.String()))
	cfg.WriteString(fmt.Sprintf("  presets_file: %q\n", a.PresetsPath))
	if a.DefaultPreset != "" {
		cfg.WriteString(fmt.Sprintf("  default_preset: %q\n", a.DefaultPreset))
	}
	cfg.WriteString("\n")

	cfg.WriteString("uploads:\n")
	cfg.WriteString(fmt.Sprintf("  dir: %q\n", a.UploadsDir))
	cfg.WriteString(fmt.Sprintf("  max_size_mb: %d\n", config.DefaultUploadMaxSizeMB))
	cfg.WriteString("\n")

	cfg.WriteString("session:\n")
	cfg.WriteString(fmt.Sprintf("  cookie_name: %q\n", config.DefaultSessionCookie))
	cfg.WriteString(fmt.Sprintf("  ttl: %q\n", config.DefaultSessionTTL.String()))
	cfg.WriteString("\n")

	cfg.WriteString("# settings:\n")
	cfg.WriteString("#   password_hash: \"\"  # from: ledger-portal hash-password\n\n")

	cfg.WriteString("api:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", a.JWTSecret))
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.Tailscale))
	if a.Tailscale {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", a.TSHostname))
		if a.TSAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", a.TSAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", a.TSEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", a.TSFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", a.LogFormat))

	return cfg.String()
}

// renderPresets writes the three organizations of the sample network.
func renderPresets(cryptoRoot string) string {
	var b strings.Builder
	b.WriteString("# Gateway presets, selectable on the settings page\n")
	b.WriteString("# Relative paths are resolved against crypto_root\n\n")
	b.WriteString(fmt.Sprintf("crypto_root = %q\n", cryptoRoot))

	for i, port := range []int{7041, 7061, 7081} {
		n := i + 1
		org := fmt.Sprintf("org%d.example.com", n)
		user := "User1@" + org
		b.WriteString(fmt.Sprintf("\n[presets.Org%d]\n", n))
		b.WriteString(fmt.Sprintf("gateway_address = \"localhost:%d\"\n", port))
		b.WriteString(fmt.Sprintf("organization_id = \"Org%dMSP\"\n", n))
		b.WriteString(fmt.Sprintf("certificate_path = \"peerOrganizations/%s/users/%s/msp/signcerts/%s-cert.pem\"\n", org, user, user))
		b.WriteString(fmt.Sprintf("private_key_path = \"peerOrganizations/%s/users/%s/msp/keystore/priv-key.pem\"\n", org, user))
		b.WriteString(fmt.Sprintf("tls_root_cert_path = \"peerOrganizations/%s/peers/peer0.%s/tls/ca.crt\"\n", org, org))
		b.WriteString(fmt.Sprintf("server_name_override = \"peer0.%s\"\n", org))
	}
	return b.String()
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

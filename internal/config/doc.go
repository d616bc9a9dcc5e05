// Package config handles configuration loading for ledger-portal.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. Gateway presets (one per organization) live in a separate TOML
// file so that certificate locations never appear in code.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from LEDGER_PORTAL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/ledger-portal/portal.yaml
//  3. ~/.config/ledger-portal/portal.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  jwt_secret: "${LEDGER_PORTAL_JWT_SECRET}"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:3000"   # pages
//	  api_addr: "localhost:3001"    # JSON API, empty disables it
//
//	database:
//	  path: "/var/lib/ledger-portal/portal.db"
//
//	ledger:
//	  channel: "my-channel1"
//	  transfer_chaincode: "transfer-cc"
//	  emissions_chaincode: "emissions-cc"
//	  collection_suffix: "PrivateCollection"
//	  timeout: "30s"
//	  reservation_ttl: "2m"
//	  presets_file: "presets.toml"
//	  default_preset: "Org1"
//
//	gateway:                         # alternative to default_preset
//	  address: "localhost:7041"
//	  organization_id: "Org1MSP"
//	  certificate_path: "..."
//	  private_key_path: "..."
//	  tls_root_cert_path: "..."
//
//	uploads:
//	  dir: "uploads"
//	  max_size_mb: 32
//
//	session:
//	  cookie_name: "ledger_portal_session"
//	  ttl: "24h"
//
//	settings:
//	  password_hash: "$2a$10$..."    # optional bcrypt hash
//
//	logging:
//	  level: "info"
//	  format: "text"
//
// # Presets File
//
//	crypto_root = "fablo-target/fabric-config/crypto-config"
//
//	[presets.Org1]
//	gateway_address = "localhost:7041"
//	organization_id = "Org1MSP"
//	certificate_path = "peerOrganizations/org1.example.com/.../signcerts/cert.pem"
//	private_key_path = "peerOrganizations/org1.example.com/.../keystore/priv-key.pem"
//	tls_root_cert_path = "peerOrganizations/org1.example.com/.../tls/ca.crt"
//	server_name_override = "peer0.org1.example.com"
package config

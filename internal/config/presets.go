// ABOUTME: Named gateway presets loaded from a TOML file
// ABOUTME: Resolves per-organization certificate paths against a shared crypto root

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// ErrUnknownPreset is returned when a preset name is not in the presets file.
var ErrUnknownPreset = errors.New("unknown gateway preset")

type presetsFile struct {
	CryptoRoot string                `toml:"crypto_root"`
	Presets    map[string]presetFile `toml:"presets"`
}

type presetFile struct {
	GatewayAddress     string `toml:"gateway_address"`
	OrganizationID     string `toml:"organization_id"`
	CertificatePath    string `toml:"certificate_path"`
	PrivateKeyPath     string `toml:"private_key_path"`
	TLSRootCertPath    string `toml:"tls_root_cert_path"`
	ServerNameOverride string `toml:"server_name_override"`
}

// Presets maps a preset name (e.g. "Org1") to its gateway settings.
type Presets map[string]GatewayConfig

// LoadPresets reads a TOML presets file. Relative certificate paths are
// joined to crypto_root; a relative crypto_root is taken relative to the
// presets file itself.
func LoadPresets(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets file: %w", err)
	}

	var raw presetsFile
	if _, err := toml.Decode(expandEnvVars(string(data)), &raw); err != nil {
		return nil, fmt.Errorf("parsing presets file: %w", err)
	}

	root := raw.CryptoRoot
	if root != "" && !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(path), root)
	}

	presets := make(Presets, len(raw.Presets))
	for name, p := range raw.Presets {
		if p.GatewayAddress == "" {
			return nil, fmt.Errorf("preset %q: gateway_address is required", name)
		}
		if p.OrganizationID == "" {
			return nil, fmt.Errorf("preset %q: organization_id is required", name)
		}
		presets[name] = GatewayConfig{
			Address:            p.GatewayAddress,
			OrganizationID:     p.OrganizationID,
			CertificatePath:    resolvePath(root, p.CertificatePath),
			PrivateKeyPath:     resolvePath(root, p.PrivateKeyPath),
			TLSRootCertPath:    resolvePath(root, p.TLSRootCertPath),
			ServerNameOverride: p.ServerNameOverride,
		}
	}

	return presets, nil
}

// Lookup returns the named preset or ErrUnknownPreset.
func (p Presets) Lookup(name string) (GatewayConfig, error) {
	cfg, ok := p[name]
	if !ok {
		return GatewayConfig{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg, nil
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolvePath(root, p string) string {
	if p == "" || root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

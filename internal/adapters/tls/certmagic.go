// Package tls provides automatic ACME certificates for the API server.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/azure"

	"github.com/jobrunner/geofacet/internal/domain"
)

// Config holds TLS configuration.
type Config struct {
	Enabled  bool
	Domains  []string
	Email    string
	CacheDir string
	Staging  bool // Let's Encrypt staging CA
	DNS      DNSConfig
}

// DNSConfig holds the Azure DNS settings for DNS-01 challenges. Without a
// subscription the HTTP-01 and TLS-ALPN-01 challenges are used.
type DNSConfig struct {
	SubscriptionID    string
	ResourceGroupName string
	ClientID          string // user assigned managed identity; empty uses the system identity
}

// Validate checks that an enabled configuration is usable.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Domains) == 0 {
		return &domain.ConfigError{Field: "tls.domains", Message: "TLS enabled but no domains specified"}
	}
	if c.Email == "" {
		return &domain.ConfigError{Field: "tls.email", Message: "TLS enabled but no email specified"}
	}
	if c.DNS.SubscriptionID != "" && c.DNS.ResourceGroupName == "" {
		return &domain.ConfigError{Field: "tls.dns.resource_group", Message: "required with a DNS subscription"}
	}
	return nil
}

// Manager obtains and renews certificates.
type Manager struct {
	config Config
	magic  *certmagic.Config
	logger *slog.Logger
}

// NewManager creates a certificate manager. A disabled configuration yields a
// manager whose TLSConfig is nil.
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{config: cfg, logger: logger.With("component", "tls")}
	if !cfg.Enabled {
		return m, nil
	}

	magic := certmagic.NewDefault()
	if cfg.CacheDir != "" {
		magic.Storage = &certmagic.FileStorage{Path: cfg.CacheDir}
	}

	issuer := certmagic.ACMEIssuer{
		CA:     certmagic.LetsEncryptProductionCA,
		Email:  cfg.Email,
		Agreed: true,
	}
	if cfg.Staging {
		issuer.CA = certmagic.LetsEncryptStagingCA
	}
	if solver := dnsSolver(cfg.DNS); solver != nil {
		issuer.DNS01Solver = solver
	}
	magic.Issuers = []certmagic.Issuer{certmagic.NewACMEIssuer(magic, issuer)}

	m.magic = magic
	return m, nil
}

func dnsSolver(cfg DNSConfig) *certmagic.DNS01Solver {
	if cfg.SubscriptionID == "" {
		return nil
	}
	return &certmagic.DNS01Solver{
		DNSManager: certmagic.DNSManager{
			DNSProvider: &azure.Provider{
				SubscriptionId:    cfg.SubscriptionID,
				ResourceGroupName: cfg.ResourceGroupName,
				ClientId:          cfg.ClientID,
			},
		},
	}
}

// Enabled reports whether TLS is configured.
func (m *Manager) Enabled() bool {
	return m.magic != nil
}

// TLSConfig returns the server TLS configuration, nil when disabled.
func (m *Manager) TLSConfig() *tls.Config {
	if m.magic == nil {
		return nil
	}
	return m.magic.TLSConfig()
}

// ManageCertificates obtains certificates for the configured domains and
// keeps them renewed in the background. With DNS-01 it blocks until the
// certificates are issued; the other challenges are answered by the listener,
// so issuance continues asynchronously once the server runs.
func (m *Manager) ManageCertificates(ctx context.Context) error {
	if m.magic == nil {
		return nil
	}

	dns01 := m.config.DNS.SubscriptionID != ""
	m.logger.Info("obtaining certificates", "domains", m.config.Domains, "dns01", dns01)

	if !dns01 {
		if err := m.magic.ManageAsync(ctx, m.config.Domains); err != nil {
			return fmt.Errorf("managing certificates: %w", err)
		}
		return nil
	}

	if err := m.magic.ManageSync(ctx, m.config.Domains); err != nil {
		return fmt.Errorf("managing certificates: %w", err)
	}
	m.logger.Info("certificates obtained")
	return nil
}

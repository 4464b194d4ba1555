// Package tls serves the dashboard over HTTPS with automatic certificates
// when a domain is configured.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/caddyserver/certmagic"
)

// CertManager provisions TLS certificates for the dashboard domain via
// certmagic.
type CertManager struct {
	domain string
	logger *slog.Logger
	cfg    *certmagic.Config
}

// NewCertManager creates a CertManager for a single dashboard domain.
// production selects the real Let's Encrypt CA; anything else uses staging.
func NewCertManager(domain string, production bool, logger *slog.Logger) *CertManager {
	certmagic.DefaultACME.Email = os.Getenv("ACME_EMAIL")
	certmagic.DefaultACME.Agreed = true
	if !production {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	return &CertManager{
		domain: domain,
		logger: logger,
		cfg:    certmagic.NewDefault(),
	}
}

// ListenAndServe obtains the certificate and serves handler over HTTPS on
// the standard port.
func (cm *CertManager) ListenAndServe(ctx context.Context, handler http.Handler) error {
	cm.logger.Info("starting TLS server", "domain", cm.domain)

	if err := cm.cfg.ManageSync(ctx, []string{cm.domain}); err != nil {
		return fmt.Errorf("manage domain: %w", err)
	}

	ln, err := tls.Listen("tcp", fmt.Sprintf(":%d", certmagic.HTTPSPort), cm.cfg.TLSConfig())
	if err != nil {
		return fmt.Errorf("tls listen: %w", err)
	}

	cm.logger.Info("serving HTTPS", "port", certmagic.HTTPSPort)
	return http.Serve(ln, handler)
}

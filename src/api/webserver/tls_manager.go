package webserver

import (
	"context"
	"crypto/tls"
	"os"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
)

const tlsCheckInterval = 5 * time.Minute

// TLSReloader serves a certificate pair from disk and picks up renewed
// files without a restart.
type TLSReloader struct {
	certFile    string
	keyFile     string
	clock       clock.Clock
	cert        *tls.Certificate
	mu          sync.RWMutex
	lastModCert time.Time
	lastModKey  time.Time
}

func NewTLSReloader(certFile, keyFile string, clk clock.Clock) (*TLSReloader, error) {
	if clk == nil {
		clk = clock.WallClock
	}
	r := &TLSReloader{certFile: certFile, keyFile: keyFile, clock: clk}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *TLSReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return errors.Annotate(err, "load tls pair")
	}
	certMod, keyMod := r.modTimes()

	r.mu.Lock()
	r.cert = &cert
	r.lastModCert, r.lastModKey = certMod, keyMod
	r.mu.Unlock()

	logger.Infof("tls certificates loaded from %s", r.certFile)
	return nil
}

func (r *TLSReloader) modTimes() (cert, key time.Time) {
	if fi, err := os.Stat(r.certFile); err == nil {
		cert = fi.ModTime()
	}
	if fi, err := os.Stat(r.keyFile); err == nil {
		key = fi.ModTime()
	}
	return cert, key
}

// changed reports whether either file is newer than the loaded pair.
func (r *TLSReloader) changed() bool {
	certMod, keyMod := r.modTimes()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return certMod.After(r.lastModCert) || keyMod.After(r.lastModKey)
}

// Watch reloads the pair when the files change, until ctx ends. A failed
// reload keeps serving the previous certificate.
func (r *TLSReloader) Watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(tlsCheckInterval):
			if !r.changed() {
				continue
			}
			if err := r.reload(); err != nil {
				logger.Warningf("tls reload: %v", err)
			}
		}
	}
}

func (r *TLSReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

func (r *TLSReloader) GetConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		},
	}
}

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"sync"
	"time"

	log "github.com/fclairamb/go-log"

	"github.com/bucketftp/ftpserver"
	"github.com/bucketftp/ftpserver/memfs"
	"github.com/bucketftp/ftpserver/objectfs"
)

// driver implements ftpserver.MainDriver: it owns the settings derived from
// config, delegates credential checks to an Authenticator, and builds a
// VirtualFileSystem scoped to whatever root the Authenticator hands back.
type driver struct {
	cfg    *config
	auth   Authenticator
	logger log.Logger

	tlsMu     sync.Mutex
	tlsConfig *tls.Config
}

func newDriver(cfg *config, auth Authenticator, logger log.Logger) *driver {
	return &driver{cfg: cfg, auth: auth, logger: logger}
}

func (d *driver) GetSettings() (*ftpserver.Settings, error) {
	var portRange *ftpserver.PortRange

	if d.cfg.PassivePortMin > 0 && d.cfg.PassivePortMax > 0 {
		portRange = &ftpserver.PortRange{Start: d.cfg.PassivePortMin, End: d.cfg.PassivePortMax}
	}

	return &ftpserver.Settings{
		ListenAddr:               d.cfg.ListenAddr,
		PublicHost:               d.cfg.PublicHost,
		PassiveTransferPortRange: portRange,
		IdleTimeout:              d.cfg.idleTimeout(),
		Banner:                   d.cfg.Greeting,
		TLSRequired:              d.cfg.tlsRequirement(),
		Anonymous:                d.cfg.Anonymous,
		ListFormat:               d.cfg.ListFormat,
		Blacklist:                d.cfg.Blacklist,
		Whitelist:                d.cfg.Whitelist,
		EndOnProcessSignal:       d.cfg.EndOnProcessSignal,
	}, nil
}

func (d *driver) ClientConnected(session *ftpserver.Session) (string, error) {
	d.logger.Info("client connected", "sessionId", session.ID(), "remote", session.RemoteAddr())

	return "", nil
}

func (d *driver) ClientDisconnected(session *ftpserver.Session) {
	d.logger.Info("client disconnected", "sessionId", session.ID())
}

func (d *driver) AuthUser(_ *ftpserver.Session, user, pass string) (ftpserver.LoginGrant, error) {
	root, err := d.auth.Authenticate(user, pass)
	if err != nil {
		return ftpserver.LoginGrant{}, fmt.Errorf("authenticate %q: %w", user, err)
	}

	fs, err := d.buildFileSystem(root)
	if err != nil {
		return ftpserver.LoginGrant{}, fmt.Errorf("build filesystem for %q: %w", user, err)
	}

	return ftpserver.LoginGrant{FS: fs, Root: root, Cwd: "/"}, nil
}

func (d *driver) buildFileSystem(root string) (ftpserver.VirtualFileSystem, error) {
	switch d.cfg.Storage.Kind {
	case "objectfs":
		sc := d.cfg.Storage
		if root == "" {
			root = sc.Root
		}

		return objectfs.New(context.Background(), objectfs.Config{
			Root:               root,
			Region:             sc.Region,
			Endpoint:           sc.Endpoint,
			AccessKeyID:        sc.AccessKeyID,
			SecretAccessKey:    sc.SecretAccessKey,
			UsePathStyle:       sc.UsePathStyle,
			ResumableUploadURL: sc.ResumableUploadURL,
			Logger:             d.logger,
		})
	case "memfs", "":
		return memfs.New(d.cfg.Storage.BaseDir)
	default:
		return nil, fmt.Errorf("unknown storage.kind %q", d.cfg.Storage.Kind)
	}
}

func (d *driver) GetTLSConfig() (*tls.Config, error) {
	d.tlsMu.Lock()
	defer d.tlsMu.Unlock()

	if d.tlsConfig != nil {
		return d.tlsConfig, nil
	}

	var (
		cert tls.Certificate
		err  error
	)

	switch {
	case d.cfg.TLSCertFile != "" && d.cfg.TLSKeyFile != "":
		cert, err = tls.LoadX509KeyPair(d.cfg.TLSCertFile, d.cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS certificate: %w", err)
		}
	case d.cfg.Storage.Kind == "memfs" || d.cfg.Storage.Kind == "":
		// No certificate configured in dev mode: generate one on the fly,
		// same as the sample driver this binary grew out of.
		cert, err = generateSelfSignedCert()
		if err != nil {
			return nil, fmt.Errorf("generate self-signed certificate: %w", err)
		}
	default:
		return nil, fmt.Errorf("tlsCertFile/tlsKeyFile are not configured")
	}

	d.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	return d.tlsConfig, nil
}

func generateSelfSignedCert() (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}

	now := time.Now().UTC()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "localhost",
			Organization: []string{"objectftpd"},
		},
		DNSNames:              []string{"localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}

	var certPem, keyPem bytes.Buffer
	if err := pem.Encode(&certPem, &pem.Block{Type: "CERTIFICATE", Bytes: derBytes}); err != nil {
		return tls.Certificate{}, fmt.Errorf("encode certificate: %w", err)
	}

	if err := pem.Encode(&keyPem, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}); err != nil {
		return tls.Certificate{}, fmt.Errorf("encode key: %w", err)
	}

	return tls.X509KeyPair(certPem.Bytes(), keyPem.Bytes())
}

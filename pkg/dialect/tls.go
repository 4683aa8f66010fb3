package dialect

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// TLSFiles locates the PEM files of a mutual TLS client identity.
type TLSFiles struct {
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether a client certificate is configured.
func (f TLSFiles) Enabled() bool {
	return f.CertFile != "" || f.KeyFile != ""
}

// LoadTLSConfig creates a TLS config for mutual TLS from files. The CA file
// is optional; without it the system roots verify the server.
//
// Example usage:
//
//	cfg, err := dialect.LoadTLSConfig(dialect.TLSFiles{
//		CAFile:   "certs/ca.crt",
//		CertFile: "certs/client.crt",
//		KeyFile:  "certs/client.key",
//	})
//	if err != nil {
//		return err
//	}
//
//	db, err := dialect.ClickHouse{TLS: cfg}.Open(dsn)
func LoadTLSConfig(files TLSFiles) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(files.CertFile, files.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load certfile/keyfile")
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if files.CAFile == "" {
		return cfg, nil
	}

	caCert, err := os.ReadFile(files.CAFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load CA file")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.Errorf("no certificates found in %s", files.CAFile)
	}
	cfg.RootCAs = pool

	return cfg, nil
}

package dialect_test

import (
	"crypto/tls"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/automigrate/pkg/dialect"
	"github.com/stretchr/testify/require"
)

// The fixtures in testdata/tls were generated with:
//
//	openssl req -x509 -new -nodes -key ca.key -sha256 -days 365 -out ca.crt \
//	  -subj "/C=AB/ST=CD/L=SomeRock/O=TestCA/CN=Test Root CA"
//	openssl genrsa -out tls.key 2048
//	openssl req -new -key tls.key -out tls.csr -subj "/C=AB/ST=CD/L=TheMoon/O=TestOrg/CN=foobar"
//	openssl x509 -req -in tls.csr -CA ca.crt -CAkey ca.key -CAcreateserial -out tls.crt -days 365 -sha256
func TestLoadTLSConfig(t *testing.T) {
	fixture := func(name string) string { return filepath.Join("testdata", "tls", name) }

	tests := []struct {
		name    string
		files   dialect.TLSFiles
		wantErr string
		roots   bool
	}{
		{
			name:  "valid configuration",
			files: dialect.TLSFiles{CAFile: fixture("ca.crt"), CertFile: fixture("tls.crt"), KeyFile: fixture("tls.key")},
			roots: true,
		},
		{
			name:  "system roots",
			files: dialect.TLSFiles{CertFile: fixture("tls.crt"), KeyFile: fixture("tls.key")},
		},
		{
			name:    "invalid cert file",
			files:   dialect.TLSFiles{CAFile: fixture("ca.crt"), CertFile: "bogus.crt", KeyFile: fixture("tls.key")},
			wantErr: "unable to load certfile/keyfile",
		},
		{
			name:    "invalid key file",
			files:   dialect.TLSFiles{CAFile: fixture("ca.crt"), CertFile: fixture("tls.crt"), KeyFile: "bogus.key"},
			wantErr: "unable to load certfile/keyfile",
		},
		{
			name:    "invalid CA file",
			files:   dialect.TLSFiles{CAFile: "bogus.crt", CertFile: fixture("tls.crt"), KeyFile: fixture("tls.key")},
			wantErr: "unable to load CA file",
		},
		{
			name:    "CA file without certificates",
			files:   dialect.TLSFiles{CAFile: fixture("tls.key"), CertFile: fixture("tls.crt"), KeyFile: fixture("tls.key")},
			wantErr: "no certificates found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, tt.files.Enabled())

			cfg, err := dialect.LoadTLSConfig(tt.files)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				require.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.Len(t, cfg.Certificates, 1)
			require.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
			require.Equal(t, tt.roots, cfg.RootCAs != nil)
		})
	}

	require.False(t, dialect.TLSFiles{CAFile: fixture("ca.crt")}.Enabled())
}

func TestClickHouseOpenWithTLS(t *testing.T) {
	cfg, err := dialect.LoadTLSConfig(dialect.TLSFiles{CertFile: filepath.Join("testdata", "tls", "tls.crt"), KeyFile: filepath.Join("testdata", "tls", "tls.key")})
	require.NoError(t, err)

	db, err := dialect.ClickHouse{TLS: cfg}.Open("clickhouse://localhost:9440/default")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = dialect.ClickHouse{TLS: cfg}.Open("://bogus")
	require.ErrorContains(t, err, "failed to parse clickhouse DSN")
}

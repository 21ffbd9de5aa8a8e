package ldapguard

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	// Verify security defaults
	if !cfg.UseTLS {
		t.Error("Default config should use TLS")
	}

	if cfg.SkipTLS {
		t.Error("Default config should not skip TLS")
	}

	if cfg.TLSConfig == nil {
		t.Error("Default config should have TLS config")
	}

	if cfg.TLSConfig.InsecureSkipVerify {
		t.Error("Default config should validate certificates")
	}

	// Verify guard defaults
	if cfg.IdleTimeout != 10*time.Minute {
		t.Errorf("IdleTimeout = %v, want 10m", cfg.IdleTimeout)
	}

	if cfg.IdleRefresh {
		t.Error("Default policy should reject on idle expiry, not refresh")
	}

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config with URLs",
			mutate:  func(c *Config) { c.LDAPURLs = []string{"ldaps://dc1.example.com:636"} },
			wantErr: false,
		},
		{
			name:    "valid config with domain",
			mutate:  func(c *Config) { c.Domain = "example.com" },
			wantErr: false,
		},
		{
			name:    "no domain or URLs",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "zero timeout",
			mutate: func(c *Config) {
				c.Domain = "example.com"
				c.Timeout = 0
			},
			wantErr: true,
		},
		{
			name: "zero idle timeout",
			mutate: func(c *Config) {
				c.Domain = "example.com"
				c.IdleTimeout = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)

			if tt.wantErr && err == nil {
				t.Error("validateConfig() expected error but got none")
			}

			if !tt.wantErr && err != nil {
				t.Errorf("validateConfig() unexpected error: %v", err)
			}
		})
	}
}

func TestGetAuthMethod(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want AuthMethod
	}{
		{
			name: "simple bind with credentials",
			cfg:  Config{Username: "admin", Password: "secret"},
			want: AuthMethodSimpleBind,
		},
		{
			name: "kerberos takes precedence",
			cfg:  Config{Username: "admin", Password: "secret", KerberosRealm: "EXAMPLE.COM"},
			want: AuthMethodKerberos,
		},
		{
			name: "external with client certificate",
			cfg:  Config{TLSClientCertFile: "/c.pem", TLSClientKeyFile: "/k.pem"},
			want: AuthMethodExternal,
		},
		{
			name: "username only defaults to simple bind",
			cfg:  Config{Username: "admin"},
			want: AuthMethodSimpleBind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetAuthMethod(); got != tt.want {
				t.Errorf("GetAuthMethod() = %s, want %s", got.String(), tt.want.String())
			}
		})
	}
}

func TestHasAuthentication(t *testing.T) {
	if (&Config{}).HasAuthentication() {
		t.Error("empty config should have no authentication")
	}
	if !(&Config{Username: "admin", Password: "secret"}).HasAuthentication() {
		t.Error("simple bind credentials should count as authentication")
	}
	if !(&Config{Username: "admin", KerberosRealm: "EXAMPLE.COM"}).HasAuthentication() {
		t.Error("kerberos configuration should count as authentication")
	}
}

// Valid test CA certificate (self-signed, for testing only)
const testCACert = `-----BEGIN CERTIFICATE-----
MIIDBTCCAe2gAwIBAgIUF3pBeK7vWjkiOn5vkdviUpPSZDIwDQYJKoZIhvcNAQEL
BQAwEjEQMA4GA1UEAwwHVGVzdCBDQTAeFw0yNTEwMjQxNzM3NDNaFw0yNjEwMjQx
NzM3NDNaMBIxEDAOBgNVBAMMB1Rlc3QgQ0EwggEiMA0GCSqGSIb3DQEBAQUAA4IB
DwAwggEKAoIBAQDcyerW4aUDqSKC9QPHuL1wZadQqNOP97LwivFl0rnJ1TTUw8Xn
qX+V16tViOSuPq+tp4vxLDE4Sv0dJbXm35+7mb9xkmJFvIQaP8wQweza/k/GnkuM
pCM9voUpxC2wDnNSenw46L0eTdFPyXDTDRQR8vbS85OektHdsSgMwxubugS0CihD
WlIKYZnvpLPrvjBoplfS5Ff3gdse2d5K9qzl4Vs+KDyfxJegML9ATmPnXWLkyl13
3WjV/rjlQrxqtIJH+APUVyGBCNe+LtymOHeIy+FMX3JpKV1CLGyVoQ1sowzgm17D
wgErA2L6/quQpkNKNuoZSuDbFdJBiHyGWNsRAgMBAAGjUzBRMB0GA1UdDgQWBBRg
vCPlMaoj4A/WZxqd7kvtbfQpZTAfBgNVHSMEGDAWgBRgvCPlMaoj4A/WZxqd7kvt
bfQpZTAPBgNVHRMBAf8EBTADAQH/MA0GCSqGSIb3DQEBCwUAA4IBAQBFbrOXuzvE
pdNN/f64PpkJakfrWGXAR4xhZul+2lXgJQd0iq7mEOkWpPlOq8/UeDTlLfOSPcDw
FrQuODeDQeUmeglZvvmJIinOzFYf4wsxaJNqdQoF3bwY6UmUWlABDoRvVkWHFMwA
VpAD/4I2VNcE+Mqe03Lx0UO+xkZ74KzHrEwKpYcPP4J3K78S16NAlz3MaH4eLRWK
yVZWTBLVmuIFB5ITwdrdL92vdP6IQoXYOSrFDyhXkSoB+UxgaZwDji2wnYw3KZrm
aomYL4gPZz6Cnw2euSkQEY64gm/e1ueJDarBkzWUFUhmTMTJ/XRJpnhdu5FTqwKj
eNsm2nzlwhTR
-----END CERTIFICATE-----`

func TestBuildCertPool_SystemOnly(t *testing.T) {
	pool, err := buildCertPool("", "")
	if err != nil {
		t.Fatalf("buildCertPool() failed: %v", err)
	}

	if pool == nil {
		t.Fatal("buildCertPool() returned nil pool")
	}
}

func TestBuildCertPool_WithContent(t *testing.T) {
	pool, err := buildCertPool("", testCACert)
	if err != nil {
		t.Fatalf("buildCertPool() with content failed: %v", err)
	}

	if pool == nil {
		t.Fatal("buildCertPool() returned nil pool")
	}
}

func TestBuildCertPool_WithFile(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "test-ca-*.pem")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if _, err := tmpFile.Write([]byte(testCACert)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()

	pool, err := buildCertPool(tmpFile.Name(), "")
	if err != nil {
		t.Fatalf("buildCertPool() with file failed: %v", err)
	}

	if pool == nil {
		t.Fatal("buildCertPool() returned nil pool")
	}
}

func TestBuildCertPool_InvalidPEM(t *testing.T) {
	_, err := buildCertPool("", "this is not valid PEM content")
	if err == nil {
		t.Error("buildCertPool() should fail with invalid PEM")
	}

	if err != nil && !strings.Contains(err.Error(), "invalid PEM format") {
		t.Errorf("Expected 'invalid PEM format' error, got: %v", err)
	}
}

func TestBuildCertPool_FileNotFound(t *testing.T) {
	_, err := buildCertPool("/nonexistent/path/to/ca.pem", "")
	if err == nil {
		t.Error("buildCertPool() should fail with nonexistent file")
	}

	if err != nil && !strings.Contains(err.Error(), "failed to read CA certificate file") {
		t.Errorf("Expected 'failed to read CA certificate file' error, got: %v", err)
	}
}

func TestPrepareTLSConfig_ServerName(t *testing.T) {
	cfg := DefaultConfig()

	tlsConfig, err := prepareTLSConfig(cfg, "dc1.example.com")
	if err != nil {
		t.Fatalf("prepareTLSConfig() failed: %v", err)
	}

	if tlsConfig.ServerName != "dc1.example.com" {
		t.Errorf("ServerName = %q, want dc1.example.com", tlsConfig.ServerName)
	}

	// Must clone, never mutate the caller's template.
	if tlsConfig == cfg.TLSConfig {
		t.Error("TLS config should be cloned, not the same reference")
	}
	if cfg.TLSConfig.ServerName != "" {
		t.Error("caller's TLS config must not be mutated")
	}
}

func TestPrepareTLSConfig_InsecureSkipVerify(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TLSConfig.InsecureSkipVerify = true

	tlsConfig, err := prepareTLSConfig(cfg, "dc1.example.com")
	if err != nil {
		t.Fatalf("prepareTLSConfig() failed: %v", err)
	}

	if tlsConfig.ServerName != "" {
		t.Errorf("ServerName should not be set when InsecureSkipVerify is true, got %s", tlsConfig.ServerName)
	}
}

func TestPrepareTLSConfig_NilTemplate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TLSConfig = nil

	tlsConfig, err := prepareTLSConfig(cfg, "dc1.example.com")
	if err != nil {
		t.Fatalf("prepareTLSConfig() failed: %v", err)
	}

	if tlsConfig == nil {
		t.Fatal("TLS config should not be nil")
	}
	if tlsConfig.ServerName != "dc1.example.com" {
		t.Errorf("ServerName = %q, want dc1.example.com", tlsConfig.ServerName)
	}
}

func TestPrepareTLSConfig_CustomCA(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TLSCACert = testCACert

	tlsConfig, err := prepareTLSConfig(cfg, "dc1.example.com")
	if err != nil {
		t.Fatalf("prepareTLSConfig() failed: %v", err)
	}

	if tlsConfig.RootCAs == nil {
		t.Error("RootCAs should be set when a custom CA is supplied")
	}
}

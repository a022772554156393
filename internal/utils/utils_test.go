package utils

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverse-geo/internal/config"
)

func TestOpenRedis(t *testing.T) {
	assert.Nil(t, OpenRedis("", "", 0))

	rc := OpenRedis("127.0.0.1:6390", "secret", 2)
	require.NotNil(t, rc)
	defer rc.Close()
	assert.Equal(t, "127.0.0.1:6390", rc.Options().Addr)
	assert.Equal(t, 2, rc.Options().DB)
}

func TestOpenRedisFromConfig(t *testing.T) {
	c := &config.Config{Redis: config.Redis{Host: "cache", Port: "6379", DB: -1}}
	assert.Nil(t, OpenRedisFromConfig(c), "disabled")

	c.Redis.Enable = true
	rc := OpenRedisFromConfig(c)
	require.NotNil(t, rc)
	defer rc.Close()
	assert.Equal(t, "cache:6379", rc.Options().Addr)
	assert.Equal(t, 0, rc.Options().DB)
}

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert, key := filepath.Join(dir, "certs", "server.crt"), filepath.Join(dir, "certs", "server.key")

	require.NoError(t, EnsureSelfSignedCert(cert, key, "geo.internal", "10.1.2.3"))
	pair, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, "geo.internal", leaf.Subject.CommonName)
	assert.Contains(t, leaf.DNSNames, "geo.internal")
	assert.NoError(t, leaf.VerifyHostname("10.1.2.3"))

	// 已存在时不重新生成
	before, err := os.ReadFile(cert)
	require.NoError(t, err)
	require.NoError(t, EnsureSelfSignedCert(cert, key))
	after, err := os.ReadFile(cert)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresEndpoints(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestNewClientFromEnvUnset(t *testing.T) {
	t.Setenv("REDCELL_REGISTRY_ENDPOINTS", "")

	client, err := NewClientFromEnv()
	assert.NoError(t, err)
	assert.Nil(t, client, "missing endpoints means no registry, not an error")
}

func TestNewTLSInfo(t *testing.T) {
	info, err := newTLSInfo(nil)
	require.NoError(t, err)
	assert.Nil(t, info)

	info, err = newTLSInfo(&TLSConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = newTLSInfo(&TLSConfig{Enabled: true})
	assert.Error(t, err)

	_, err = newTLSInfo(&TLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem"})
	assert.Error(t, err)

	info, err = newTLSInfo(&TLSConfig{
		Enabled:  true,
		CertFile: "c.pem",
		KeyFile:  "k.pem",
		CAFile:   "ca.pem",
	})
	require.NoError(t, err)
	assert.Equal(t, "c.pem", info.CertFile)
}

func TestBuildKey(t *testing.T) {
	c := &Client{namespace: "redcell"}
	assert.Equal(t, "/redcell/engines/i-123", c.buildKey("i-123"))
}

func TestClosedClientRejectsReads(t *testing.T) {
	c := &Client{namespace: "redcell", closed: true}

	// Both read paths share the open check and must not touch etcd
	// once the client is closed.
	_, err := c.Discover(context.Background())
	assert.Error(t, err)

	_, err = c.Watch(context.Background())
	assert.Error(t, err)
}

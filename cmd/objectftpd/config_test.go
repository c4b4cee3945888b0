package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/bucketftp/ftpserver"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:2121", cfg.ListenAddr)
	require.Equal(t, "memfs", cfg.Storage.Kind)
	require.Equal(t, "static", cfg.Auth.Kind)
}

func TestLoadConfigOverrides(t *testing.T) {
	v := viper.New()
	v.Set("listenAddr", "127.0.0.1:2200")
	v.Set("storage.kind", "objectfs")
	v.Set("storage.root", "my-bucket")
	v.Set("tlsRequired", "mandatory")

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:2200", cfg.ListenAddr)
	require.Equal(t, "objectfs", cfg.Storage.Kind)
	require.Equal(t, "my-bucket", cfg.Storage.Root)
	require.Equal(t, ftpserver.MandatoryEncryption, cfg.tlsRequirement())
}

func TestTLSRequirementDefaultsToClearOrEncrypted(t *testing.T) {
	c := defaultConfig()
	require.Equal(t, ftpserver.ClearOrEncrypted, c.tlsRequirement())
}

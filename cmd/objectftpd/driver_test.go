package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bucketftp/ftpserver/memfs"
	"github.com/bucketftp/ftpserver/objectfs"
)

func TestGetSettingsMapsPassivePortRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.PassivePortMin = 30000
	cfg.PassivePortMax = 30100

	d := newDriver(cfg, nil, nil)

	settings, err := d.GetSettings()
	require.NoError(t, err)
	require.NotNil(t, settings.PassiveTransferPortRange)
	require.Equal(t, 30000, settings.PassiveTransferPortRange.Start)
	require.Equal(t, 30100, settings.PassiveTransferPortRange.End)
}

func TestGetSettingsLeavesPortRangeNilWhenUnset(t *testing.T) {
	cfg := defaultConfig()

	d := newDriver(cfg, nil, nil)

	settings, err := d.GetSettings()
	require.NoError(t, err)
	require.Nil(t, settings.PassiveTransferPortRange)
}

func TestBuildFileSystemMemfs(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.Kind = "memfs"

	d := newDriver(cfg, nil, nil)

	fs, err := d.buildFileSystem("")
	require.NoError(t, err)
	require.IsType(t, &memfs.FileSystem{}, fs)
}

func TestBuildFileSystemObjectfsUsesConfiguredRoot(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.Kind = "objectfs"
	cfg.Storage.Root = "mybucket/prefix"

	d := newDriver(cfg, nil, nil)

	fs, err := d.buildFileSystem("")
	require.NoError(t, err)
	require.IsType(t, &objectfs.FileSystem{}, fs)
}

func TestBuildFileSystemUnknownKindFails(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.Kind = "weird"

	d := newDriver(cfg, nil, nil)

	_, err := d.buildFileSystem("")
	require.Error(t, err)
}

func TestGetTLSConfigSelfSignsInDevMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.Kind = "memfs"

	d := newDriver(cfg, nil, nil)

	tlsConfig, err := d.GetTLSConfig()
	require.NoError(t, err)
	require.Len(t, tlsConfig.Certificates, 1)
}

func TestGetTLSConfigCachesCertificate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.Kind = "memfs"

	d := newDriver(cfg, nil, nil)

	first, err := d.GetTLSConfig()
	require.NoError(t, err)

	second, err := d.GetTLSConfig()
	require.NoError(t, err)

	require.Same(t, first, second)
}

func TestGetTLSConfigFailsClosedWithoutCertInProductionMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.Kind = "objectfs"

	d := newDriver(cfg, nil, nil)

	_, err := d.GetTLSConfig()
	require.Error(t, err)
}

func TestGenerateSelfSignedCertProducesUsableCertificate(t *testing.T) {
	cert, err := generateSelfSignedCert()
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)
}

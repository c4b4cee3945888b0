package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/bucketftp/ftpserver"
)

// config is the on-disk/flag-driven shape of everything the server needs to
// start, per SPEC_FULL's §6 "Configuration (named options)" plus C11a's
// storage/auth wiring.
type config struct {
	ListenAddr string `mapstructure:"listenAddr"`
	PublicHost string `mapstructure:"publicHost"`

	PassivePortMin int `mapstructure:"passivePortMin"`
	PassivePortMax int `mapstructure:"passivePortMax"`

	Greeting   string `mapstructure:"greeting"`
	Anonymous  bool   `mapstructure:"anonymous"`
	ListFormat string `mapstructure:"listFormat"`

	Blacklist []string `mapstructure:"blacklist"`
	Whitelist []string `mapstructure:"whitelist"`

	IdleTimeoutSeconds int `mapstructure:"idleTimeoutSeconds"`

	TLSCertFile string `mapstructure:"tlsCertFile"`
	TLSKeyFile  string `mapstructure:"tlsKeyFile"`
	TLSRequired string `mapstructure:"tlsRequired"` // "none", "mandatory", "implicit"

	EndOnProcessSignal bool `mapstructure:"endOnProcessSignal"`

	Storage storageConfig `mapstructure:"storage"`
	Auth    authConfig    `mapstructure:"auth"`
}

type storageConfig struct {
	// Kind selects the backing VirtualFileSystem: "objectfs" (production)
	// or "memfs" (local-disk, demo/dev mode).
	Kind string `mapstructure:"kind"`

	// objectfs fields
	Root                string `mapstructure:"root"`
	Region              string `mapstructure:"region"`
	Endpoint            string `mapstructure:"endpoint"`
	AccessKeyID         string `mapstructure:"accessKeyId"`
	SecretAccessKey     string `mapstructure:"secretAccessKey"`
	UsePathStyle        bool   `mapstructure:"usePathStyle"`
	ResumableUploadURL  string `mapstructure:"resumableUploadUrl"`

	// memfs field
	BaseDir string `mapstructure:"baseDir"`
}

type authConfig struct {
	// Kind selects the Authenticator: "static" (a fixed user table) or
	// "http" (delegate to an external endpoint).
	Kind string `mapstructure:"kind"`

	StaticUsers []staticUser `mapstructure:"staticUsers"`

	HTTPEndpoint string `mapstructure:"httpEndpoint"`
}

type staticUser struct {
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	Root string `mapstructure:"root"`
}

func loadConfig(v *viper.Viper) (*config, error) {
	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *config {
	return &config{
		ListenAddr:         "0.0.0.0:2121",
		ListFormat:         "ls",
		IdleTimeoutSeconds: 900,
		Storage:            storageConfig{Kind: "memfs", BaseDir: "./data"},
		Auth:               authConfig{Kind: "static"},
	}
}

func (c *config) tlsRequirement() ftpserver.TLSRequirement {
	switch c.TLSRequired {
	case "implicit":
		return ftpserver.ImplicitEncryption
	case "mandatory":
		return ftpserver.MandatoryEncryption
	default:
		return ftpserver.ClearOrEncrypted
	}
}

func (c *config) idleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

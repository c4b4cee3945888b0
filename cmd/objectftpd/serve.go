package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bucketftp/ftpserver"
	gokitlog "github.com/bucketftp/ftpserver/log/gokit"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(v); err != nil {
				return err
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			auth, err := buildAuthenticator(cfg.Auth)
			if err != nil {
				return fmt.Errorf("build authenticator: %w", err)
			}

			logger := gokitlog.NewGKLoggerStdout()

			d := newDriver(cfg, auth, logger)
			srv := ftpserver.NewFtpServer(d)
			srv.Logger = logger

			logger.Info("starting objectftpd", "listenAddr", cfg.ListenAddr, "storage", cfg.Storage.Kind)

			return srv.ListenAndServe()
		},
	}
}

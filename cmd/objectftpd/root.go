package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string //nolint:gochecknoglobals

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "objectftpd",
		Short: "An FTP server backed by an object store",
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	cmd.AddCommand(newServeCommand(v))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func initViper(v *viper.Viper) error {
	v.SetEnvPrefix("OBJECTFTPD")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %q: %w", cfgFile, err)
		}
	}

	return nil
}

// Execute runs the root command, exiting the process on error the way the
// teacher's sample driver does.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

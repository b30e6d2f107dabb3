// Package cli implements the gopheros host tool. It runs the kernel's ACPI
// locator against physical memory images and drives the debug console scheme
// from a terminal.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/twpayne/go-vfs"

	"gopheros/kernel/kfmt"
)

// hostFS is the filesystem used to read images and configuration.
var hostFS vfs.FS = vfs.OSFS

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gopheros",
		Short: "gopheros kernel host tools",
	}
	cmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	cmd.PersistentFlags().String("config-dir", "", "Set config dir")
	cmd.PersistentFlags().String("logfile", "", "Set logfile")
	cmd.PersistentFlags().Bool("quiet", false, "Do not output to stderr")
	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("config-dir", cmd.PersistentFlags().Lookup("config-dir"))
	_ = viper.BindPFlag("logfile", cmd.PersistentFlags().Lookup("logfile"))
	_ = viper.BindPFlag("quiet", cmd.PersistentFlags().Lookup("quiet"))
	return cmd
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = NewRootCmd()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		switch t := err.(type) {
		case *ExitError:
			os.Exit(t.ExitCode())
		default:
			os.Exit(ExitCodeGeneric)
		}
	}
}

// readConfig loads the configuration for cmd and installs its logger as the
// kernel default sink.
func readConfig(cmd *cobra.Command) (*Config, error) {
	cfg, err := ReadConfig(hostFS, viper.GetString("config-dir"), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	kfmt.SetDefault(cfg.Logger)
	return cfg, nil
}

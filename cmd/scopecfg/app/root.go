// Package app provides the command tree of the scopecfg CLI.
package app

import (
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/scopecfg/internal/config"
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/log"
)

// lockTimeout bounds the wait for another process's update.
const lockTimeout = 10 * time.Second

// app carries state shared by the commands of one invocation.
type app struct {
	fsys  afero.Fs
	flags config.Bootstrap
	cfg   *config.Config
}

// NewRootCmd creates the root command on the OS file system.
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fsys afero.Fs) *cobra.Command {
	a := &app{fsys: fsys}

	rootCmd := &cobra.Command{
		Use:               "scopecfg",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Inspect and edit scoped configuration",
		Long: `scopecfg reads configuration sections from a stack of scopes
(defaults, site and user, each with a platform-specific scope above it)
and shows the merged result. Higher scopes override lower ones; a section
key written as "name::" replaces everything below it.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.cfg != nil {
				a.cfg.Close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.ScopesFile, "scopes-file", "", "TOML manifest listing the scopes to use")
	flags.StringVar(&a.flags.Prefix, "prefix", "", "Installation prefix (default: parent of the executable's directory)")
	flags.StringVar(&a.flags.UserDir, "user-dir", "", "User scope directory (default: ~/.scopecfg)")
	flags.StringVar(&a.flags.Platform, "platform", "", "Platform scope name (default: the host OS)")
	flags.StringVar(&a.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newScopesCmd(a),
		newGetCmd(a),
		newQueryCmd(a),
		newPathCmd(a),
		newSetCmd(a),
		newUpdateCmd(a),
		newValidateCmd(a),
		newPackageCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// open configures logging and the configuration from the environment and
// the persistent flags. Flags win over the environment.
func (a *app) open(cmd *cobra.Command) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	env, err := config.BootstrapFromEnv()
	if err != nil {
		return err
	}
	b := env.Override(a.flags)

	log.Configure(log.Config{
		Level:   b.LogLevel,
		Output:  cmd.ErrOrStderr(),
		Console: isTerminal(cmd.ErrOrStderr()),
	})

	var opts []config.Option
	if _, ok := a.fsys.(*afero.OsFs); ok {
		opts = append(opts, config.WithFileLock(lockTimeout))
	}

	cfg, err := config.OpenFs(a.fsys, b, opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// completeSection completes the section argument of a command.
func completeSection(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return registry.NewWithDefaults().Names(), cobra.ShellCompDirectiveNoFileComp
}

// Package cli exposes the runtime as cobra commands.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	configx "github.com/tanpawarit/ai-suite-runtime/pkg/config"
	"github.com/tanpawarit/ai-suite-runtime/pkg/telemetry"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks bad flags or arguments.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// ExitCode maps a command error onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ue usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, contractx.ErrInvalidPayload),
		errors.Is(err, contractx.ErrUnknownAgent):
		return ExitUsage
	default:
		return ExitError
	}
}

func NewRootCmd(version string) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "ai-suite",
		Short:         "Run ai-suite agent workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				configx.SetEnvFile(envFile)
			}
			return telemetry.Init()
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env", "", "Env file to load (default: $ENV_FILE or .env)")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newRunTriageCmd())
	cmd.AddCommand(newRunResolutionCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newOutboxCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	if version == "" {
		version = "dev"
	}
	cmd.Version = version
	cmd.SetVersionTemplate("{{.Version}}\n")
	return cmd
}

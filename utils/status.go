package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Output receives the status line. Tests swap it for a buffer.
var Output io.Writer = os.Stdout

var exit = os.Exit

var statusNames = map[int]string{
	sensu.CheckStateOK:       "OK",
	sensu.CheckStateWarning:  "WARNING",
	sensu.CheckStateCritical: "CRITICAL",
	sensu.CheckStateUnknown:  "UNKNOWN",
}

func StatusName(status int) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return statusNames[sensu.CheckStateUnknown]
}

// Status prints "<STATUS>: message" and returns status.
func Status(status int, format string, args ...interface{}) int {
	fmt.Fprintf(Output, "%s: %s\n", StatusName(status), fmt.Sprintf(format, args...))
	return status
}

func Ok(format string, args ...interface{}) int {
	return Status(sensu.CheckStateOK, format, args...)
}

func Warning(format string, args ...interface{}) int {
	return Status(sensu.CheckStateWarning, format, args...)
}

func Critical(format string, args ...interface{}) int {
	return Status(sensu.CheckStateCritical, format, args...)
}

func Unknown(format string, args ...interface{}) int {
	return Status(sensu.CheckStateUnknown, format, args...)
}

// Exit terminates the plugin. A non nil err has not been reported yet, so it
// is printed with status before exiting.
func Exit(status int, err error) {
	if err != nil {
		logger.Get().Debug("check failed", zap.Error(err))
		Status(status, "%v", err)
	}
	exit(status)
}

// Execute adds the shared --log-level flag to cmd and runs it. Flag and
// argument errors are reported as UNKNOWN.
func Execute(cmd *cobra.Command) {
	var logLevel string
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr (debug, info, warn, error)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return logger.Init(logLevel)
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	if err := cmd.Execute(); err != nil {
		Status(sensu.CheckStateUnknown, "%v", err)
		exit(sensu.CheckStateUnknown)
	}
}

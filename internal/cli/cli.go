package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/memogrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("memogrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
MemoGrid - A declarative runner for parametric, memoized computations.

Usage:
  memogrid [options] [EXPERIMENT_PATH]

Arguments:
  EXPERIMENT_PATH
    Path to a single .hcl experiment file or a directory containing .hcl files.

Examples:
  memogrid experiment.hcl
  memogrid -f experiment.hcl --mode run --workers 4
  memogrid --store-root ./data/memo --list-cache

Options:
`)
		flagSet.PrintDefaults()
	}

	fileFlag := flagSet.String("file", "", "Path to the experiment file or directory.")
	fFlag := flagSet.String("f", "", "Path to the experiment file or directory (shorthand).")
	modulesPathFlag := flagSet.String("modules-path", "modules", "Path to the directory containing module definitions.")
	storeRootFlag := flagSet.String("store-root", "", "Root directory for memoized task stores. Overrides the experiment's store block.")
	modeFlag := flagSet.String("mode", "auto", "Execution mode. Options: 'auto', 'run' or 'load'.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent workers for the executor. 0 means one per CPU.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	listCacheFlag := flagSet.Bool("list-cache", false, "List the memoized computations in the store and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *fileFlag != "" {
		path = *fileFlag
	} else if *fFlag != "" {
		path = *fFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Experiment path determined.", "path", path)

	if path == "" && !*listCacheFlag {
		slog.Debug("No experiment path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	mode := strings.ToLower(*modeFlag)
	switch mode {
	case "auto", "run", "load":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid mode: must be 'auto', 'run' or 'load'"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *workersFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid workers: must be zero or positive"}
	}
	if *statusPortFlag < 0 || *statusPortFlag > 65535 {
		return nil, false, &ExitError{Code: 2, Message: "invalid status-port: must be between 0 and 65535"}
	}
	slog.Debug("CLI parameter validation complete.")

	config := &app.Config{
		ExperimentPath: path,
		ModulesPath:    *modulesPathFlag,
		StoreRoot:      *storeRootFlag,
		Mode:           mode,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		StatusPort:     *statusPortFlag,
		WorkerCount:    *workersFlag,
		ListCache:      *listCacheFlag,
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

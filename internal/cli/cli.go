package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/nfgenomeannotator/internal/app"
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
	flagSet := flag.NewFlagSet("nfgenomeannotator", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
nfgenomeannotator - Launches the nf-core/genomeannotator Nextflow pipeline.

Usage:
  nfgenomeannotator [options] PARAMS_FILE

Arguments:
  PARAMS_FILE
    Parameter values as an .hcl or .json file of attributes.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to a launcher .hcl file or a directory of them.")
	schemaFlag := flagSet.Bool("schema", false, "Print the parameter schema as JSON and exit.")
	initParamsFlag := flagSet.String("init-params", "", "Write a parameters template to this path and exit.")
	phaseFlag := flagSet.String("phase", app.PhaseAll, "Workflow phase to run. Options: 'all', 'initialize', 'runtime'.")
	volumeFlag := flagSet.String("volume", "", "Storage claim name from the initialize phase. Required for -phase runtime.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "only one PARAMS_FILE may be given"}
	}
	paramsPath := flagSet.Arg(0)

	phase := strings.ToLower(*phaseFlag)
	if paramsPath == "" && !*schemaFlag && *initParamsFlag == "" && phase != app.PhaseInitialize {
		slog.Debug("No parameters file provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
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
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPath:      *configFlag,
		ParamsPath:      paramsPath,
		Phase:           phase,
		Volume:          *volumeFlag,
		PrintSchema:     *schemaFlag,
		InitParamsPath:  *initParamsFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

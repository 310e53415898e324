// Command lcrf is the linear-chain CRF toolkit's command-line front
// end: annotate turns text/columns into an attribute-bearing training
// file, train estimates a model from that file, apply labels new input
// with a trained model, convert round-trips the first-order text dump
// format into the binary one, and inspect reads a model's metadata
// without loading its parameters.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lcrf/pkg/lcrferr"
)

var logLevel string
var logFormat string

func main() {
	root := &cobra.Command{
		Use:              "lcrf",
		Short:            "Linear-chain CRF toolkit: annotate, train, apply, convert, inspect",
		PersistentPreRun: setupLogging,
	}

	root.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info, error, or debug")
	root.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	root.AddCommand(AnnotateCommand())
	root.AddCommand(TrainCommand())
	root.AddCommand(ApplyCommand())
	root.AddCommand(ConvertCommand())
	root.AddCommand(InspectCommand())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(lcrferr.ExitCodeFor(err))
	}
}

func setupLogging(cmd *cobra.Command, args []string) {
	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		fmt.Fprintf(os.Stderr, "invalid --log-level %q\n", logLevel)
		os.Exit(lcrferr.ExitUsageError)
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		fmt.Fprintf(os.Stderr, "invalid --log-format %q\n", logFormat)
		os.Exit(lcrferr.ExitUsageError)
	}
}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}
	}
	log.Logger = log.Output(writer)
}

// openResource opens path for reading, wrapping a failure in
// lcrferr.ErrResource so the top-level exit-code classifier maps it to
// the I/O exit code rather than the generic usage one.
func openResource(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", lcrferr.ErrResource, path, err)
	}
	return f, nil
}

func createResource(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", lcrferr.ErrResource, path, err)
	}
	return f, nil
}

package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lcrf/pkg/crf/textdump"
)

// ConvertCommand wires crf/textdump and crf into the "text dump ->
// binary" leg: the third-party interop format is first-order only (see
// DESIGN.md's resolution of spec.md's text-dump Open Question), so
// Convert rejects a higher-order source dump rather than silently
// losing its state tuples.
func ConvertCommand() *cobra.Command {
	var inputFile string
	var outputFile string

	cmd := &cobra.Command{
		Use:   "convert -i textDumpFile -o binaryModelFile",
		Short: "Convert a first-order text model dump to the binary model format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openResource(inputFile)
			if err != nil {
				return err
			}
			defer in.Close()

			m, err := textdump.Read(in)
			if err != nil {
				return fmt.Errorf("reading text dump: %w", err)
			}

			out, err := createResource(outputFile)
			if err != nil {
				return err
			}
			defer out.Close()

			if _, err := m.WriteTo(out); err != nil {
				return fmt.Errorf("writing binary model: %w", err)
			}
			log.Info().Str("from", inputFile).Str("to", outputFile).Msg("converted text dump to binary model")
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "text model dump to read")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "binary model file to write")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

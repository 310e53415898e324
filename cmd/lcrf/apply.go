package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lcrf/pkg/crf"
	"lcrf/pkg/features"
	"lcrf/pkg/pipeline"
)

// ApplyCommand wires crf and pipeline into the "columns + model ->
// labeled output" leg (running-text input is not read here): load a
// binary model, read column-mode input, extract the same attribute
// categories the model was trained with, decode every sequence, and
// emit it through the requested output format.
func ApplyCommand() *cobra.Command {
	var modelFile string
	var inputFile string
	var outputFile string
	var format string

	cmd := &cobra.Command{
		Use:   "apply -m modelFile -i inputFile [-o outputFile] [--format column|json|text]",
		Short: "Label column-mode input with a trained model",
		Args:  cobra.NoArgs,
	}
	ff := addFeatureFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts, err := ff.resolve()
		if err != nil {
			return err
		}

		mf, err := openResource(modelFile)
		if err != nil {
			return err
		}
		defer mf.Close()
		model, err := crf.ReadModel(mf)
		if err != nil {
			return fmt.Errorf("loading model: %w", err)
		}
		log.Info().Str("file", modelFile).Int("order", model.Order()).
			Int("labels", model.LabelsCount()).Msg("model loaded")

		in, err := openResource(inputFile)
		if err != nil {
			return err
		}
		defer in.Close()
		sequences, skipped, err := pipeline.ReadColumnSequences(in, pipeline.DefaultHeader)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if skipped > 0 {
			log.Warn().Int("skipped", skipped).Msg("skipped malformed input lines")
		}

		var w io.Writer = cmd.OutOrStdout()
		if outputFile != "" {
			f, err := createResource(outputFile)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		out, err := newOutputter(format, w)
		if err != nil {
			return err
		}

		extractor := features.New(opts)
		decoder := crf.NewDecoder(model)
		return pipeline.ApplyAll(model, decoder, extractor, sequences, out)
	}

	cmd.Flags().StringVarP(&modelFile, "model", "m", "", "path to a binary model file")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "column-mode input file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "column", "output format: column, json, or text")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newOutputter(format string, w io.Writer) (pipeline.Outputter, error) {
	switch format {
	case "column":
		return pipeline.NewColumnOutputter(w), nil
	case "json":
		return pipeline.NewJSONOutputter(w), nil
	case "text":
		return pipeline.NewTextOutputter(w, pipeline.DefaultOutsideLabel), nil
	default:
		return nil, fmt.Errorf("unknown --format %q: want column, json, or text", format)
	}
}

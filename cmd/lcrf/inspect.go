package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lcrf/pkg/crf"
)

// InspectCommand wires crf.ReadMetadata into a standalone subcommand,
// supplementing spec.md with the original's model_meta_data(filename):
// a way to check a model's shape (order, label/state/attribute/
// transition/parameter counts) without paying for a full load of its
// mappers and parameter vector. --dot additionally loads the full model
// and renders its transition graph via crf.Model.WriteDOT, the original
// draw()'s Graphviz dump.
func InspectCommand() *cobra.Command {
	var modelFile string
	var dotFile string

	cmd := &cobra.Command{
		Use:   "inspect -m modelFile [--dot dotFile]",
		Short: "Print a binary model's metadata, or render its transition graph as Graphviz dot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dotFile != "" {
				return writeDOT(modelFile, dotFile)
			}

			f, err := openResource(modelFile)
			if err != nil {
				return err
			}
			defer f.Close()

			md, err := crf.ReadMetadata(f)
			if err != nil {
				return fmt.Errorf("reading model metadata: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "order:                  %d\n", md.Order)
			fmt.Fprintf(w, "labels:                 %d\n", md.NumLabels)
			fmt.Fprintf(w, "states:                 %d\n", md.NumStates)
			fmt.Fprintf(w, "transitions:            %d\n", md.NumTransitions)
			fmt.Fprintf(w, "attributes:             %d\n", md.NumAttributes)
			fmt.Fprintf(w, "features:               %d\n", md.NumFeatures)
			fmt.Fprintf(w, "parameters:             %d\n", md.NumParameters)
			fmt.Fprintf(w, "non-null parameters:    %d\n", md.NumNonNullParameters)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelFile, "model", "m", "", "path to a binary model file")
	cmd.Flags().StringVar(&dotFile, "dot", "", "render the model's transition graph as Graphviz dot to this file instead of printing metadata")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func writeDOT(modelFile, dotFile string) error {
	f, err := openResource(modelFile)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := crf.ReadModel(f)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}

	out, err := createResource(dotFile)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := m.WriteDOT(out); err != nil {
		return fmt.Errorf("writing dot graph: %w", err)
	}
	return nil
}

package main

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lcrf/pkg/corpus"
	"lcrf/pkg/crf"
	"lcrf/pkg/train"
)

// TrainCommand wires corpus, crf, and train into the "corpus -> binary
// model" leg of the pipeline: read the attribute-bearing training file,
// build the initial model (transitions and state features observed in
// the corpus), run the averaged perceptron, and persist the result.
func TrainCommand() *cobra.Command {
	var trainFile string
	var outputFile string
	var cacheFile string
	var order int
	var backoff bool
	var pruneThreshold int
	var iterations int
	var lossThreshold float64
	var useThreshold bool
	var seed int64

	cmd := &cobra.Command{
		Use:   "train -i trainFile -o outputFile",
		Short: "Estimate a CRF model's parameters from an annotated training file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadOrReadCorpus(trainFile, cacheFile)
			if err != nil {
				return err
			}
			log.Info().Int("sequences", c.Size()).Int("tokens", c.TokenCount()).
				Int("labels", c.Labels().Size()).Int("attributes", c.Attributes().Size()).
				Msg("corpus loaded")

			if pruneThreshold > 0 {
				removed := c.Prune(pruneThreshold)
				log.Info().Int("removed", removed).Int("threshold", pruneThreshold).Msg("pruned low-frequency attributes")
			}

			m := crf.BuildInitialModel(c.Labels(), c.Attributes(), c.Size(),
				func(i int) ([]crf.TokenAttributes, []crf.LabelID) {
					p := c.At(i)
					return p.Tokens, p.Labels
				}, order, backoff)
			log.Info().Int("transitions", m.TransitionsCount()).Int("features", m.FeaturesCount()).
				Int("parameters", m.ParametersCount()).Msg("initial model constructed")

			trainer := train.New(m, c)
			rng := rand.New(rand.NewSource(seed))
			if useThreshold {
				trainer.TrainByThreshold(lossThreshold, rng)
			} else {
				trainer.TrainByIterations(iterations, rng)
			}

			out, err := createResource(outputFile)
			if err != nil {
				return err
			}
			defer out.Close()
			if _, err := m.WriteTo(out); err != nil {
				return fmt.Errorf("writing model: %w", err)
			}
			log.Info().Str("file", outputFile).Msg("model saved")
			return nil
		},
	}

	cmd.Flags().StringVarP(&trainFile, "train-file", "i", "", "attribute-bearing training file (corpus.Read format)")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "path to write the binary model to")
	cmd.Flags().StringVar(&cacheFile, "cache-file", "", "optional snappy-compressed translated-corpus cache (read if present, written if absent)")
	cmd.Flags().IntVar(&order, "order", 1, "CRF history length (1 = first-order)")
	cmd.Flags().BoolVar(&backoff, "backoff-transitions", false, "also add lower-order back-off transitions for higher-order models")
	cmd.Flags().IntVar(&pruneThreshold, "prune-threshold", 0, "drop attributes observed fewer than this many times (0 disables pruning)")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 20, "number of training epochs")
	cmd.Flags().Float64Var(&lossThreshold, "loss-threshold", 0.0, "stop training early once per-epoch loss falls to or below this value")
	cmd.Flags().BoolVar(&useThreshold, "stop-on-loss-threshold", false, "stop by --loss-threshold instead of running exactly --iterations epochs")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for corpus shuffling between epochs")

	_ = cmd.MarkFlagRequired("train-file")
	_ = cmd.MarkFlagRequired("output-file")

	return cmd
}

// loadOrReadCorpus loads a translated corpus from cacheFile if it
// exists, otherwise parses trainFile and writes cacheFile (when given)
// so the next invocation over the same data can skip re-parsing and
// re-translating.
func loadOrReadCorpus(trainFile, cacheFile string) (*corpus.Corpus, error) {
	if cacheFile != "" {
		if f, err := openResource(cacheFile); err == nil {
			defer f.Close()
			c, err := corpus.ReadCache(f)
			if err != nil {
				return nil, fmt.Errorf("reading corpus cache: %w", err)
			}
			log.Info().Str("file", cacheFile).Msg("corpus loaded from cache")
			return c, nil
		}
	}

	in, err := openResource(trainFile)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	c := corpus.New()
	skipped, err := c.Read(in)
	if err != nil {
		return nil, fmt.Errorf("reading training file: %w", err)
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("skipped malformed training lines")
	}

	if cacheFile != "" {
		out, err := createResource(cacheFile)
		if err != nil {
			return nil, err
		}
		defer out.Close()
		if err := c.WriteCache(out); err != nil {
			return nil, fmt.Errorf("writing corpus cache: %w", err)
		}
	}
	return c, nil
}

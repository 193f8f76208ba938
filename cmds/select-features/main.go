package main

import (
	"log"
	"os"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/grokdata/featselect/pmi"
)

var (
	logPrefix = "[select-features] "
	logFlags  = log.LstdFlags | log.Lmicroseconds | log.Lshortfile
)

func init() {
	log.SetPrefix(logPrefix)
	log.SetFlags(logFlags)
	log.SetOutput(os.Stderr)
}

func main() {
	args := struct {
		Assoc          string `arg:"positional,required" help:"entity -> word association file"`
		Matrix         string `arg:"positional,required" help:"sparse entity-feature matrix file"`
		WordFeatures   string `help:"output path for the word -> features table"`
		FilteredMatrix string `help:"output path for the filtered matrix"`

		Mode            string `help:"entity or entity-pair"`
		MaxWordCount    int    `help:"drop entities with more total word occurrences than this"`
		MaxFeatureCount int    `help:"drop rows with at least this many distinct features from aggregation"`
		MinFeatureCount int    `help:"feature retention threshold; -1 means the mode default"`
		FeaturesPerWord int    `help:"maximum number of score groups selected per word"`
		SquaredPmi      bool   `help:"score joint^2/(word*feature) instead of joint/(word*feature)"`
		Partitions      int    `help:"number of concurrent workers; does not affect output content"`
	}{
		WordFeatures:    "word_features.tsv",
		FilteredMatrix:  "filtered_matrix.tsv",
		Mode:            pmi.DefaultOptions.Mode,
		MaxWordCount:    pmi.DefaultOptions.MaxWordCount,
		MaxFeatureCount: pmi.DefaultOptions.MaxFeatureCount,
		MinFeatureCount: pmi.DefaultOptions.MinFeatureCount,
		FeaturesPerWord: pmi.DefaultOptions.FeaturesPerWord,
	}

	arg.MustParse(&args)

	start := time.Now()

	computer, err := pmi.NewComputer(pmi.Options{
		Mode:            args.Mode,
		MaxWordCount:    args.MaxWordCount,
		MaxFeatureCount: args.MaxFeatureCount,
		MinFeatureCount: args.MinFeatureCount,
		FeaturesPerWord: args.FeaturesPerWord,
		UseSquaredPMI:   args.SquaredPmi,
		Partitions:      args.Partitions,
	})
	if err != nil {
		log.Fatal(err)
	}

	res, err := computer.SelectFeatures(args.Assoc, args.Matrix, args.WordFeatures, args.FilteredMatrix)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("selected features for %d words (%d retained, %d allowed globally, %d failures)",
		res.Words, res.RetainedFeatures, res.AllowedFeatures, res.Failures)
	log.Printf("wrote %s and %s, took %v", args.WordFeatures, args.FilteredMatrix, time.Since(start))
}

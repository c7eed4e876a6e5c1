package main

import (
	"fmt"
	"os"
	"time"

	"github.com/DavidGamba/go-getoptions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"modalityscan/pkg/classify"
	"modalityscan/pkg/config"
	"modalityscan/pkg/pipeline"
)

func main() {
	var (
		inputPath   string
		configPath  string
		weightsPath string
		maxDim      int
		verbose     bool
		showHelp    bool
	)

	opt := getoptions.New()
	opt.StringVar(&inputPath, "input", "", opt.Alias("i"),
		opt.Description("path to a DICOM, PNG, or JPEG file to classify"))
	opt.StringVar(&configPath, "config", "modalityscan.yaml", opt.Alias("c"),
		opt.Description("path to the YAML configuration file"))
	opt.StringVar(&weightsPath, "weights", "",
		opt.Description("path to a YAML classifier weights file"))
	opt.IntVar(&maxDim, "max-dimension", 0,
		opt.Description("maximum raster dimension before feature extraction (0 = config value)"))
	opt.BoolVar(&verbose, "verbose", false, opt.Alias("v"),
		opt.Description("show debug logging"))
	opt.BoolVar(&showHelp, "help", false, opt.Alias("h"),
		opt.Description("show help information"))

	if _, err := opt.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if showHelp || inputPath == "" {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(1)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}
	if verbose || cfg.Output.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if maxDim == 0 {
		maxDim = cfg.Processing.MaxDimension
	}

	weights, err := cfg.ResolveWeights()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve classifier weights")
	}
	if weightsPath != "" {
		if weights, err = classify.LoadWeights(weightsPath); err != nil {
			log.Fatal().Err(err).Str("path", weightsPath).Msg("failed to load classifier weights")
		}
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", inputPath).Msg("failed to read input file")
	}
	log.Debug().Int("bytes", len(data)).Str("path", inputPath).Msg("input loaded")

	start := time.Now()
	report, err := pipeline.Run(data, pipeline.Options{
		MaxDimension: maxDim,
		Weights:      &weights,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("classification failed")
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("pipeline complete")

	fmt.Println("================================")
	fmt.Println("MODALITY CLASSIFICATION")
	fmt.Println("================================")
	fmt.Printf("Predicted modality: %s\n", report.Result.Label)
	fmt.Printf("P(CT):  %.4f\n", report.Result.ProbCT)
	fmt.Printf("P(MRI): %.4f\n", report.Result.ProbMRI)

	if study := report.Study; study != nil {
		fmt.Println("\nDICOM metadata:")
		fmt.Printf("  Modality tag:    %s\n", orDash(study.Modality))
		fmt.Printf("  Transfer syntax: %s\n", orDash(study.TransferSyntax))
		fmt.Printf("  Dimensions:      %dx%d\n", study.Columns, study.Rows)
		fmt.Printf("  Frames:          %d\n", study.Frames)
		fmt.Printf("  Rescale:         slope=%g intercept=%g\n", study.RescaleSlope, study.RescaleIntercept)
		if study.WindowCenter != nil && study.WindowWidth != nil {
			fmt.Printf("  Window:          center=%g width=%g\n", *study.WindowCenter, *study.WindowWidth)
		} else {
			fmt.Printf("  Window:          derived from data\n")
		}

		// The embedded modality tag is shown for comparison but never
		// feeds the classifier; disagreement is worth surfacing.
		if study.Modality != "" && study.Modality != string(report.Result.Label) {
			log.Warn().
				Str("predicted", string(report.Result.Label)).
				Str("tagged", study.Modality).
				Msg("prediction disagrees with the embedded modality tag")
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

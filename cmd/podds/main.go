package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Chango93/Predicciones/internal/logger"
	"github.com/Chango93/Predicciones/internal/processor"
	"github.com/Chango93/Predicciones/pkg/util/podds"
)

type options struct {
	configFile  string
	historyFile string
	inputFile   string
	outputFile  string
	dbPath      string
	cacheDir    string
	saveStats   bool
	evaluate    string
}

func main() {
	// Parse command line flags
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "YAML configuration file (defaults are used when empty)")
	flag.StringVar(&opts.historyFile, "history", "", "Match history TSV or CSV file")
	flag.StringVar(&opts.inputFile, "input", "", "Fixtures JSON file (if not provided, stdin will be used)")
	flag.StringVar(&opts.outputFile, "output", "", "Output file path (if not provided, stdout will be used)")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite database for the prior cache and predictions (overrides db_path)")
	flag.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for JSON prior cache files when no database is used")
	flag.BoolVar(&opts.saveStats, "save-stats", false, "Store the current season's team stats in the database")
	flag.StringVar(&opts.evaluate, "evaluate", "", "Score a stored run id against the played results instead of predicting")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Configure logging, stdout is reserved for the response
	logger.SetOutput(os.Stderr)
	logger.SetShowDateTime(true)
	logger.SetLevel(logger.ParseLevel(*logLevel))
	if *debug {
		logger.SetLevel(logger.DEBUG)
		logger.Debug("Debug logging enabled")
	}

	if err := run(opts, flag.Args()); err != nil {
		logger.Error("podds failed", err)
		os.Exit(1)
	}
	logger.Info("podds completed successfully")
}

// run does all the work so that deferred cleanup happens before main exits
func run(opts options, args []string) error {
	config, err := podds.LoadConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.dbPath != "" {
		config.DbPath = opts.dbPath
	}
	if opts.cacheDir != "" {
		config.CacheDir = opts.cacheDir
	}
	if opts.historyFile == "" {
		return fmt.Errorf("a match history file is required (-history)")
	}

	records, err := podds.LoadMatchHistory(opts.historyFile)
	if err != nil {
		return err
	}

	var store *podds.Store
	if config.DbPath != "" {
		store, err = podds.OpenStore(config.DbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
	}

	if opts.evaluate != "" {
		if store == nil {
			return fmt.Errorf("-evaluate needs a database (-db or db_path)")
		}
		return evaluate(store, opts, records, podds.NewCanonicalizer(config.Aliases))
	}

	logger.Info("Starting podds for", config.CurrentSeason)

	var cache podds.PriorCache
	if store != nil {
		if cache, err = podds.NewSqlitePriorCache(store); err != nil {
			return fmt.Errorf("failed to prepare prior cache: %w", err)
		}
	} else if config.CacheDir != "" {
		cache = podds.NewFilePriorCache(config.CacheDir)
	}

	predictor, err := podds.NewPredictor(config, records, cache)
	if err != nil {
		return fmt.Errorf("failed to prepare predictor: %w", err)
	}

	if opts.saveStats {
		if store == nil {
			return fmt.Errorf("-save-stats needs a database (-db or db_path)")
		}
		if err := podds.SaveSeasonStats(store, predictor.Snapshot()); err != nil {
			return err
		}
	}

	// Determine input source
	var input []byte
	switch {
	case opts.inputFile != "":
		if input, err = os.ReadFile(opts.inputFile); err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
	case len(args) > 0:
		// "home vs away" pairs from the command line
		if input, err = fixturesFromArgs(args); err != nil {
			return err
		}
	default:
		if input, err = io.ReadAll(os.Stdin); err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	}

	result, preds, err := processor.ProcessRequest(predictor, input)
	if err != nil {
		return fmt.Errorf("failed to process request: %w", err)
	}

	if store != nil && len(preds) > 0 {
		runID, err := podds.SavePredictions(store, "", predictor.Snapshot().Season, preds)
		if err != nil {
			logger.Error("Failed to save predictions", err)
		} else {
			logger.Inform("Predictions stored under run", runID)
		}
	}

	if err := writeOutput(opts.outputFile, result); err != nil {
		return err
	}
	if preds == nil {
		return fmt.Errorf("no predictions were produced")
	}
	return nil
}

// evaluate scores a stored run and writes the report
func evaluate(store *podds.Store, opts options, records []*podds.MatchRecord, canon *podds.Canonicalizer) error {
	eval, err := podds.EvaluateRun(store, opts.evaluate, records, canon)
	if err != nil {
		return err
	}
	logger.Highlight("Run", eval.RunID, "points", eval.Points, "of", eval.MaxPoints,
		"high confidence precision", eval.HighConfidencePrecision, eval.Verdict)
	report, err := json.MarshalIndent(eval, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(opts.outputFile, report)
}

// writeOutput writes to the output file, or stdout when none was given
func writeOutput(path string, data []byte) error {
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write to output file: %w", err)
	}
	return nil
}

// fixturesFromArgs builds a request from arguments such as "america vs pumas, atlas vs leon"
func fixturesFromArgs(args []string) ([]byte, error) {
	request := processor.Request{RequestID: fmt.Sprintf("cli-%d", os.Getpid())}
	for _, pair := range strings.Split(strings.Join(args, " "), ",") {
		teams := strings.SplitN(pair, " vs ", 2)
		if len(teams) != 2 {
			logger.Warn("Ignoring argument, expected 'home vs away'", pair)
			continue
		}
		request.Matches = append(request.Matches, podds.Fixture{
			Home: strings.TrimSpace(teams[0]),
			Away: strings.TrimSpace(teams[1]),
		})
	}
	return json.Marshal(request)
}

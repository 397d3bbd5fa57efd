// readchop demultiplexes long-read FASTQ data against a barcode pattern
// catalog, writing one FASTQ file per resolved sample label.
//
// Invocation mirrors the teacher's muscato entry point: either a JSON or
// TOML configuration file, or the equivalent command-line flags.
//
//	readchop --config run.json
//	readchop --inputs reads.fastq.gz --pattern_db db.txt --pattern_index index.txt --outdir out/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"

	"github.com/cherryamme/ReadChop/catalog"
	"github.com/cherryamme/ReadChop/classify"
	"github.com/cherryamme/ReadChop/errs"
	"github.com/cherryamme/ReadChop/pipeline"
	"github.com/cherryamme/ReadChop/sink"
	"github.com/cherryamme/ReadChop/utils"
)

var logger *log.Logger

// handleArgs builds a Config from an optional config file overlaid with
// any command-line flags given, following the teacher's
// "file then flags win" precedence (cmd/muscato/main.go's handleArgs).
func handleArgs() (*utils.Config, error) {
	configPath := flag.String("config", "", "JSON or TOML file containing run configuration")
	inputsRaw := flag.String("inputs", "", "Comma-separated FASTQ input paths (.gz auto-detected)")
	patternDB := flag.String("pattern_db", "", "Pattern database file")
	patternIndex := flag.String("pattern_index", "", "Sample index file")
	outDir := flag.String("outdir", "", "Output directory")
	threads := flag.Int("threads", 0, "Number of classification worker goroutines")
	minLength := flag.Int("min_length", 0, "Reads shorter than this are routed to unmatched")
	windowLeft := flag.Int("window_left", 0, "5' search window length")
	windowRight := flag.Int("window_right", 0, "3' search window length")
	errorRateL := flag.Float64("error_rate_left", 0, "Maximum edit rate for the 5' end")
	errorRateR := flag.Float64("error_rate_right", 0, "Maximum edit rate for the 3' end")
	matchMode := flag.String("match_mode", "", "'single' or 'dual'")
	trimMode := flag.Int("trim_mode", -1, "0, 1, or 2+ (see spec)")
	writeType := flag.String("write_type", "", "'names' or 'type'")
	usePosition := flag.Bool("use_position", false, "Require hits to fall within their search window")
	shift := flag.Int("shift", -1, "Dedup radius for same-pattern hits within one end")
	maxDist := flag.Int("maxdist", -1, "Hard cap on edit distance regardless of error rate")
	idSep := flag.String("id_sep", "", "Single-character separator before the annotation suffix")
	cacheDir := flag.String("cache_dir", "", "Directory for the cached, pre-parsed pattern catalog")
	cpuProfile := flag.Bool("cpuprofile", false, "Capture CPU profile data into outdir")
	flag.Parse()

	var cfg *utils.Config
	var err error
	if *configPath != "" {
		if strings.HasSuffix(*configPath, ".toml") {
			cfg, err = utils.ReadConfigTOML(*configPath)
		} else {
			cfg, err = utils.ReadConfig(*configPath)
		}
		if err != nil {
			return nil, err
		}
	} else {
		cfg = new(utils.Config)
	}

	if *inputsRaw != "" {
		cfg.Inputs = strings.Split(*inputsRaw, ",")
	}
	if *patternDB != "" {
		cfg.PatternDB = *patternDB
	}
	if *patternIndex != "" {
		cfg.PatternIndex = *patternIndex
	}
	if *outDir != "" {
		cfg.OutDir = *outDir
	}
	if *threads != 0 {
		cfg.Threads = *threads
	}
	if *minLength != 0 {
		cfg.MinLength = *minLength
	}
	if *windowLeft != 0 {
		cfg.WindowLeft = *windowLeft
	}
	if *windowRight != 0 {
		cfg.WindowRight = *windowRight
	}
	if *errorRateL != 0 {
		cfg.ErrorRateL = *errorRateL
	}
	if *errorRateR != 0 {
		cfg.ErrorRateR = *errorRateR
	}
	if *matchMode != "" {
		cfg.MatchMode = utils.MatchMode(*matchMode)
	}
	if *trimMode >= 0 {
		cfg.TrimMode = *trimMode
	}
	if *writeType != "" {
		cfg.WriteType = utils.WriteType(*writeType)
	}
	if *usePosition {
		cfg.UsePosition = true
	}
	if *shift >= 0 {
		cfg.Shift = *shift
	}
	if *maxDist >= 0 {
		cfg.MaxDist = *maxDist
	}
	if *idSep != "" {
		cfg.IDSep = *idSep
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *cpuProfile {
		cfg.CPUProfile = true
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLog opens outdir/readchop_<runID>.log, following the teacher's
// one-log-file-per-run convention (cmd/muscato/main.go's setupLog).
func setupLog(outDir, runID string) (*log.Logger, *os.File, error) {
	logname := path.Join(outDir, fmt.Sprintf("readchop_%s.log", runID))
	fid, err := os.Create(logname)
	if err != nil {
		return nil, nil, errs.NewIoError(logname, err)
	}
	return log.New(fid, "", log.Ltime), fid, nil
}

// saveRunManifest writes run.json: the effective configuration plus the
// run id, start time, and final counters, following the teacher's
// saveConfig (cmd/muscato/main.go) extended with a result summary.
func saveRunManifest(outDir, runID string, cfg *utils.Config, started time.Time, totals utils.Counters) error {
	manifest := struct {
		RunID     string         `json:"run_id"`
		StartedAt string         `json:"started_at"`
		Config    *utils.Config  `json:"config"`
		Counters  utils.Counters `json:"counters"`
	}{
		RunID:     runID,
		StartedAt: started.Format(time.RFC3339),
		Config:    cfg,
		Counters:  totals,
	}

	path := path.Join(outDir, "run.json")
	fid, err := os.Create(path)
	if err != nil {
		return errs.NewIoError(path, err)
	}
	defer fid.Close()

	enc := json.NewEncoder(fid)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

// writeStatsTSV writes stats.tsv: one row per observed output key with its
// count, plus the summary rows spec.md §6 names literally — total,
// unmatched, too_short. unmatched is records_rejected_unmatched plus
// records_rejected_short, since unmatched.fastq (spec.md §6) receives both
// unclassified and too-short records. Malformed FASTQ records are also
// counted in records_rejected_unmatched but are never written to any
// file, so when there are any, this row exceeds the number of records
// in unmatched.fastq. too_short is called out separately as the subset
// rejected for length rather than for a failed match.
func writeStatsTSV(outDir string, totals utils.Counters) error {
	path := path.Join(outDir, "stats.tsv")
	fid, err := os.Create(path)
	if err != nil {
		return errs.NewIoError(path, err)
	}
	defer fid.Close()

	fmt.Fprintf(fid, "key\tcount\n")
	for key, count := range totals.PerSample {
		fmt.Fprintf(fid, "%s\t%d\n", key, count)
	}
	fmt.Fprintf(fid, "total\t%d\n", totals.RecordsIn)
	fmt.Fprintf(fid, "unmatched\t%d\n", totals.RecordsRejectedUnmatched+totals.RecordsRejectedShort)
	fmt.Fprintf(fid, "too_short\t%d\n", totals.RecordsRejectedShort)
	return nil
}

// loadCatalog loads the pattern catalog, consulting the on-disk snappy
// cache first when cfg.CacheDir is set (catalog/cache.go).
func loadCatalog(cfg *utils.Config) (*catalog.Catalog, error) {
	dbBytes, err := os.ReadFile(cfg.PatternDB)
	if err != nil {
		return nil, errs.NewIoError(cfg.PatternDB, err)
	}
	indexBytes, err := os.ReadFile(cfg.PatternIndex)
	if err != nil {
		return nil, errs.NewIoError(cfg.PatternIndex, err)
	}

	if cfg.CacheDir != "" {
		key := catalog.CacheKey(dbBytes, indexBytes)
		if cached, ok, err := catalog.LoadCache(cfg.CacheDir, key); err != nil {
			logger.Printf("catalog cache read failed, reparsing: %v", err)
		} else if ok {
			logger.Printf("loaded pattern catalog from cache %s", key)
			return cached, nil
		}

		cat, err := catalog.Load(dbBytes, indexBytes)
		if err != nil {
			return nil, err
		}
		if err := catalog.SaveCache(cfg.CacheDir, key, cat); err != nil {
			logger.Printf("catalog cache write failed: %v", err)
		}
		return cat, nil
	}

	return catalog.Load(dbBytes, indexBytes)
}

func run() error {
	cfg, err := handleArgs()
	if err != nil {
		return err
	}

	runID, err := uuid.NewUUID()
	if err != nil {
		return errs.NewInternalError("generating run id: %v", err)
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return errs.NewIoError(cfg.OutDir, err)
	}

	var logFile *os.File
	logger, logFile, err = setupLog(cfg.OutDir, runID.String())
	if err != nil {
		return err
	}
	defer logFile.Close()

	if cfg.CPUProfile {
		p := profile.Start(profile.ProfilePath(cfg.OutDir))
		defer p.Stop()
	}

	started := time.Now()
	logger.Printf("run %s starting, %d input file(s)", runID, len(cfg.Inputs))

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	logger.Printf("loaded catalog: %d forward patterns, %d reverse patterns",
		len(cat.ForwardPatterns()), len(cat.ReversePatterns()))

	ms := classify.NewMatchSet(cat)

	out, err := sink.New(cfg.OutDir)
	if err != nil {
		return err
	}

	merger := utils.NewMerger()
	runErr := pipeline.Run(cfg, ms, out, merger)

	if err := out.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	totals := merger.Total()
	logger.Printf("done: %d in, %d classified, %d too-short, %d unmatched",
		totals.RecordsIn, totals.RecordsClassified, totals.RecordsRejectedShort, totals.RecordsRejectedUnmatched)

	if err := writeStatsTSV(cfg.OutDir, totals); err != nil {
		return err
	}
	return saveRunManifest(cfg.OutDir, runID.String(), cfg, started, totals)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, filepath.Base(os.Args[0])+": "+err.Error())
		os.Exit(errs.ExitCode(err))
	}
}

// Package pipeline wires the reader, classifier workers, and writer into a
// bounded three-stage run, following the teacher's semaphore-channel
// concurrency idiom (muscato_screen.go's search/limit/hitchan) generalized
// to the reader/worker-pool/writer shape of spec.md §4.4.
package pipeline

import (
	"sync"

	"github.com/cherryamme/ReadChop/classify"
	"github.com/cherryamme/ReadChop/errs"
	"github.com/cherryamme/ReadChop/sink"
	"github.com/cherryamme/ReadChop/utils"
)

// batchSize is the fixed record-batch size the reader groups input into
// before enqueuing, amortizing channel synchronization and preserving
// per-batch locality (spec.md §4.4 "Batching").
const batchSize = 64

// channelBatches is the per-worker channel capacity multiplier (spec.md
// §4.4 "Backpressure": "2 * threads batches each").
const channelBatches = 2

// maxMalformedRate is the run-wide cap on malformed FASTQ records before
// the run is aborted (spec.md §7: "a run-wide cap (e.g., 0.5% of
// records) turns them fatal").
const maxMalformedRate = 0.005

// minMalformedSample is the minimum number of scanned records before
// maxMalformedRate is enforced, so a single bad record early in a small
// file doesn't trip a 0.5% ratio on its own.
const minMalformedSample = 200

// recordBatch is one reader-produced group of parsed records, all drawn
// from the point in the input stream the reader had reached (spec.md
// §4.4 "the reader groups input records into batches").
type recordBatch struct {
	recs []utils.Record
}

// resultBatch is one worker's classified output for a recordBatch,
// forwarded whole to the writer so per-key ordering within the batch is
// preserved (spec.md §4.4 "Ordering").
type resultBatch struct {
	results []classify.Result
}

// Run classifies every record in cfg.Inputs against ms under cfg, writing
// results to out and merging counters into merger. Three stages connected
// by two bounded channels (spec.md §4.4): a single reader goroutine
// streams every input file in order and batches records onto jobs; a
// fixed pool of cfg.Threads workers drains jobs, classifies each batch,
// and forwards the classified batch onto results; a single writer
// goroutine drains results and is the sink's only caller, matching
// spec.md §4.5/§9 ("a single writer thread drives the sink, eliminating
// per-key locks").
func Run(cfg *utils.Config, ms *classify.MatchSet, out *sink.Sink, merger *utils.Merger) error {
	chanCap := channelBatches * cfg.Threads
	if chanCap < channelBatches {
		chanCap = channelBatches
	}
	jobs := make(chan recordBatch, chanCap)
	results := make(chan resultBatch, chanCap)
	errc := make(chan error, cfg.Threads+2)

	readerCounters := utils.NewCounters()
	go func() {
		readAll(cfg.Inputs, jobs, readerCounters, errc)
		close(jobs)
	}()

	var workers sync.WaitGroup
	for i := 0; i < cfg.Threads; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			counters := utils.NewCounters()
			for batch := range jobs {
				results <- classifyBatch(batch, cfg, ms, counters)
			}
			merger.Merge(counters)
		}()
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	// Single writer: the only goroutine that ever calls out.Write, so the
	// sink needs no per-entry locking (spec.md §4.5, §9).
	for batch := range results {
		for _, res := range batch.results {
			if err := out.Write(res.OutputKey, res.AnnotatedID, res.Seq, res.Qual); err != nil {
				select {
				case errc <- errs.NewIoError(res.OutputKey, err):
				default:
				}
			}
		}
	}

	merger.Merge(readerCounters)

	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

// readAll streams every record across all of paths, in that order, onto
// jobs as fixed-size batches (spec.md §4.4). A malformed record (spec.md
// §7 RecordParseError) is logged via counters as records_rejected_unmatched
// rather than aborting the run; once malformed records exceed
// maxMalformedRate of everything scanned so far, the run is aborted. An
// unreadable input file or a genuine I/O failure mid-stream is always
// fatal (spec.md §7 "I/O errors ... are fatal").
func readAll(paths []string, jobs chan<- recordBatch, counters *utils.Counters, errc chan<- error) {
	var batch []utils.Record
	var scanned, malformed uint64

	flush := func() {
		if len(batch) > 0 {
			jobs <- recordBatch{recs: batch}
			batch = nil
		}
	}
	report := func(err error) {
		select {
		case errc <- err:
		default:
		}
	}

	for _, path := range paths {
		r, err := utils.NewReader(path)
		if err != nil {
			report(err)
			continue
		}

		aborted := false
		for r.Next() {
			scanned++
			if perr := r.RecordErr(); perr != nil {
				malformed++
				counters.RecordsIn++
				counters.RecordsRejectedUnmatched++
				if scanned >= minMalformedSample && float64(malformed)/float64(scanned) > maxMalformedRate {
					report(errs.NewRecordParseError(
						"malformed-record rate %d/%d exceeds %.2f%% cap (last: %v)",
						malformed, scanned, maxMalformedRate*100, perr))
					aborted = true
					break
				}
				continue
			}
			batch = append(batch, r.Record())
			if len(batch) >= batchSize {
				flush()
			}
		}
		fatal := r.Err()
		r.Close()
		if aborted {
			flush()
			return
		}
		if fatal != nil {
			report(fatal)
			flush()
			return
		}
	}
	flush()
}

// classifyBatch runs classify.Classify over every record in batch,
// updating counters on the worker's local hot path (spec.md §5 "no
// per-record lock acquisition").
func classifyBatch(batch recordBatch, cfg *utils.Config, ms *classify.MatchSet, counters *utils.Counters) resultBatch {
	out := resultBatch{results: make([]classify.Result, 0, len(batch.recs))}
	for _, rec := range batch.recs {
		counters.RecordsIn++

		result := classify.Classify(rec, cfg, ms)
		switch {
		case result.TooShort:
			counters.RecordsRejectedShort++
		case result.Unmatched:
			counters.RecordsRejectedUnmatched++
		default:
			counters.RecordsClassified++
			counters.AddSample(result.OutputKey)
		}
		out.results = append(out.results, result)
	}
	return out
}

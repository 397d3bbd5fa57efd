// Package catalog loads and indexes the named barcode patterns used to
// classify records (spec.md §4.1).
package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/cherryamme/ReadChop/errs"
)

// End names the 5' (left/forward) or 3' (right/reverse) pattern set.
type End int

const (
	Left End = iota
	Right
)

func (e End) String() string {
	if e == Left {
		return "L"
	}
	return "R"
}

// Pattern is one named barcode (spec.md §3).
type Pattern struct {
	Name  string
	Type  string
	Bytes []byte
}

// sampleKey joins a forward/reverse name pair the way the sample-index
// file does, with "none" substituted for a missing side (spec.md §4.3
// output-key derivation).
type sampleKey struct {
	Fwd, Rev string
}

// Catalog is the PatternCatalog of spec.md §4.1: ordered forward and
// reverse pattern sets plus the (forward,reverse)->sample_label mapping.
type Catalog struct {
	forward    []Pattern
	reverse    []Pattern
	fwdByName  map[string]int
	revByName  map[string]int
	sampleByKey map[sampleKey]string

	seeds [2]*seedFilter
}

// ForwardPatterns returns the forward (5') pattern set in the order its
// names are first referenced by the index file's index_F column; the line
// order of the pattern database is not used.
func (c *Catalog) ForwardPatterns() []Pattern { return c.forward }

// ReversePatterns returns the reverse (3') pattern set in the order its
// names are first referenced by the index file's index_R column; the line
// order of the pattern database is not used.
func (c *Catalog) ReversePatterns() []Pattern { return c.reverse }

// Patterns returns the pattern set for the given end.
func (c *Catalog) Patterns(end End) []Pattern {
	if end == Left {
		return c.forward
	}
	return c.reverse
}

// SampleLabel resolves a (forward_name, reverse_name) pair to a sample
// label. A missing side (single-end match) must be passed as "none"; an
// empty name matches no entry.
func (c *Catalog) SampleLabel(fwd, rev string) (string, bool) {
	label, ok := c.sampleByKey[sampleKey{Fwd: fwd, Rev: rev}]
	return label, ok
}

// SeedFilter returns the Bloom/rolling-hash prefilter for an end (see
// catalog/seed.go), built once at Load time.
func (c *Catalog) SeedFilter(end End) *seedFilter { return c.seeds[end] }

// Load parses a decrypted pattern database and a sample-index file into a
// Catalog (spec.md §4.1). dbBytes is a flat `name\tbytes\n` lookup table
// (blank lines and `#` comments ignored); indexBytes holds the
// tab-separated `(index_F, index_R, type)` sample table with a leading `#`
// header line. The forward and reverse pattern sets are the names actually
// referenced by the index_F and index_R columns respectively, in the order
// they're first encountered there — not "every name in the database,"
// since a database entry used only as index_R has no business being tried
// against a record's left window (spec.md §3's "two ordered collections").
func Load(dbBytes, indexBytes []byte) (*Catalog, error) {
	db, err := parseDB(dbBytes)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		fwdByName:   map[string]int{},
		revByName:   map[string]int{},
		sampleByKey: map[sampleKey]string{},
	}

	if err := parseIndex(indexBytes, db, c); err != nil {
		return nil, err
	}

	c.seeds[Left] = buildSeedFilter(c.forward)
	c.seeds[Right] = buildSeedFilter(c.reverse)

	return c, nil
}

// parseDB parses the flat `name\tbases\n` pattern lookup table, rejecting
// duplicate names and malformed lines (spec.md §4.1). It does not itself
// decide which names end up on the forward or reverse end; that's driven
// by how the index file references them (see parseIndex).
func parseDB(data []byte) (map[string][]byte, error) {
	db := map[string][]byte{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, errs.Malformed(lineNo, fmt.Sprintf("expected 2 tab-separated fields, got %d", len(fields)))
		}
		name, bases := fields[0], strings.ToUpper(fields[1])
		if name == "" {
			return nil, errs.Malformed(lineNo, "empty pattern name")
		}
		if err := validateBases(bases); err != nil {
			return nil, errs.Malformed(lineNo, err.Error())
		}
		if _, dup := db[name]; dup {
			return nil, errs.DuplicatePattern(name)
		}
		db[name] = []byte(bases)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.NewIoError("pattern_db", err)
	}
	return db, nil
}

func validateBases(bases string) error {
	if bases == "" {
		return fmt.Errorf("empty pattern bases")
	}
	for i := 0; i < len(bases); i++ {
		switch bases[i] {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return fmt.Errorf("invalid base %q at offset %d", bases[i], i)
		}
	}
	return nil
}

// parseIndex parses the tab-separated sample-index file, deriving the
// forward and reverse pattern sets from the index_F/index_R columns (each
// name resolved against db) and populating the sample map as a side
// effect (spec.md §4.1). A pattern's Type is set to the sample_type of the
// first purely single-end row that names it, since a pattern referenced
// only from dual-mode rows has no sample label of its own (spec.md §3:
// "type is the sample-type label used for output keying when
// write-type=type").
func parseIndex(data []byte, db map[string][]byte, c *Catalog) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	seenKeys := map[sampleKey]bool{}
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return errs.Malformed(lineNo, fmt.Sprintf("expected 3 tab-separated fields, got %d", len(fields)))
		}
		fwdName, revName, sampleType := fields[0], fields[1], fields[2]
		if sampleType == "" {
			return errs.Malformed(lineNo, "sample label (type) must be non-empty")
		}

		fwdPresent := fwdName != "" && fwdName != "none"
		revPresent := revName != "" && revName != "none"

		if fwdPresent {
			if err := addPattern(db, fwdName, &c.forward, c.fwdByName); err != nil {
				return err
			}
		}
		if revPresent {
			if err := addPattern(db, revName, &c.reverse, c.revByName); err != nil {
				return err
			}
		}

		if fwdPresent && !revPresent {
			idx := c.fwdByName[fwdName]
			if c.forward[idx].Type == "" {
				c.forward[idx].Type = sampleType
			}
		}
		if revPresent && !fwdPresent {
			idx := c.revByName[revName]
			if c.reverse[idx].Type == "" {
				c.reverse[idx].Type = sampleType
			}
		}

		key := sampleKey{Fwd: normalizeNone(fwdName), Rev: normalizeNone(revName)}
		if seenKeys[key] {
			return errs.DuplicateSample(fmt.Sprintf("%s/%s", key.Fwd, key.Rev))
		}
		seenKeys[key] = true
		c.sampleByKey[key] = sampleType
	}
	if err := scanner.Err(); err != nil {
		return errs.NewIoError("pattern_index", err)
	}
	return nil
}

// addPattern resolves name against db and appends it to set/byName the
// first time it's referenced, leaving both untouched on a repeat
// reference.
func addPattern(db map[string][]byte, name string, set *[]Pattern, byName map[string]int) error {
	if _, ok := byName[name]; ok {
		return nil
	}
	bases, ok := db[name]
	if !ok {
		return errs.MissingPattern(name)
	}
	byName[name] = len(*set)
	*set = append(*set, Pattern{Name: name, Bytes: bases})
	return nil
}

func normalizeNone(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

// LoadFiles is a convenience wrapper that reads the database and index
// files from disk and calls Load, matching the invocation surface of
// spec.md §6 (pattern_db, pattern_index are file paths).
func LoadFiles(dbPath, indexPath string) (*Catalog, error) {
	dbBytes, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, errs.NewIoError(dbPath, err)
	}
	indexBytes, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, errs.NewIoError(indexPath, err)
	}
	return Load(dbBytes, indexBytes)
}

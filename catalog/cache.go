package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/cherryamme/ReadChop/errs"
	"github.com/golang/snappy"
)

// snapshot is the gob-serializable form of a Catalog, mirroring the
// teacher's habit of caching every intermediate artifact as a compact
// on-disk file (every `*.txt.sz` in cmd/muscato) — here applied to the
// one artifact in this pipeline expensive enough to be worth caching: a
// parsed, indexed pattern catalog.
type snapshot struct {
	Forward     []Pattern
	Reverse     []Pattern
	FwdByName   map[string]int
	RevByName   map[string]int
	SampleByKey map[sampleKey]string
}

func (c *Catalog) toSnapshot() snapshot {
	return snapshot{
		Forward:     c.forward,
		Reverse:     c.reverse,
		FwdByName:   c.fwdByName,
		RevByName:   c.revByName,
		SampleByKey: c.sampleByKey,
	}
}

func fromSnapshot(s snapshot) *Catalog {
	c := &Catalog{
		forward:     s.Forward,
		reverse:     s.Reverse,
		fwdByName:   s.FwdByName,
		revByName:   s.RevByName,
		sampleByKey: s.SampleByKey,
	}
	c.seeds[Left] = buildSeedFilter(c.forward)
	c.seeds[Right] = buildSeedFilter(c.reverse)
	return c
}

// CacheKey derives a stable cache file name from the raw db+index bytes,
// so a change to either file invalidates the cache automatically.
func CacheKey(dbBytes, indexBytes []byte) string {
	h := sha256.New()
	h.Write(dbBytes)
	h.Write([]byte{0})
	h.Write(indexBytes)
	return hexEncode(h.Sum(nil))
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0xf]
	}
	return string(out)
}

// SaveCache writes a snappy-compressed gob encoding of c under
// cacheDir/<key>.cache, matching the teacher's snappy-backed intermediate
// files (e.g. reads_sorted.txt.sz).
func SaveCache(cacheDir, key string, c *Catalog) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return errs.NewIoError(cacheDir, err)
	}
	path := filepath.Join(cacheDir, key+".cache")
	f, err := os.Create(path)
	if err != nil {
		return errs.NewIoError(path, err)
	}
	defer f.Close()

	sw := snappy.NewBufferedWriter(f)
	defer sw.Close()

	enc := gob.NewEncoder(sw)
	if err := enc.Encode(c.toSnapshot()); err != nil {
		return errs.NewIoError(path, err)
	}
	return sw.Close()
}

// LoadCache reads back a catalog previously written by SaveCache. It
// returns (nil, false, nil) when no cache file exists for key, so callers
// fall back to Load without treating a cold cache as an error.
func LoadCache(cacheDir, key string) (*Catalog, bool, error) {
	path := filepath.Join(cacheDir, key+".cache")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.NewIoError(path, err)
	}

	sr := snappy.NewReader(bytes.NewReader(data))
	var s snapshot
	dec := gob.NewDecoder(sr)
	if err := dec.Decode(&s); err != nil {
		return nil, false, errs.NewIoError(path, err)
	}
	return fromSnapshot(s), true, nil
}

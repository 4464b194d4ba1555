package classifier

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// Save writes the current model snapshot to path as gzipped JSON. The blob
// is opaque to callers; Load is its only consumer.
func (c *Classifier) Save(path string) error {
	snap, err := c.snapshot()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		return fmt.Errorf("save model: encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("save model: flush: %w", err)
	}
	return nil
}

// Load restores a snapshot previously written by Save. After a successful
// load IsTrained reports true and predictions are deterministic given the
// same training corpus.
func (c *Classifier) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("load model: gunzip: %w", err)
	}
	defer zr.Close()

	var snap snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return fmt.Errorf("load model: decode: %w", err)
	}
	if err := snap.validate(); err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()
	return nil
}

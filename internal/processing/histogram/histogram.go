// Package histogram tallies per-channel intensity frequencies of a raster
// buffer and compares two tallies.
package histogram

import (
	"sync"

	"rasterkit/internal/raster"
	"rasterkit/internal/workerpool"
)

// Bins is the number of buckets per channel, one per 8-bit intensity.
const Bins = 256

// Buckets is one channel's tally indexed by exact intensity.
type Buckets [Bins]int

// Histogram holds red, green and blue tallies of a buffer. It is immutable
// once built; accessors return copies.
type Histogram struct {
	red   Buckets
	green Buckets
	blue  Buckets
	count int
}

// Build scans buf once. Row ranges are tallied in parallel on pool and
// merged by elementwise addition.
func Build(pool *workerpool.Pool, buf *raster.Buffer) (*Histogram, error) {
	if err := raster.ValidateBufferForOperation(buf, "histogram"); err != nil {
		return nil, err
	}

	h := &Histogram{}
	var mu sync.Mutex
	bpp := buf.BytesPerPixel()

	pool.ParallelFor(buf.Height(), func(start, end int) {
		var local Histogram
		for y := start; y < end; y++ {
			row := buf.Row(y)
			for x := 0; x+bpp <= len(row); x += bpp {
				local.blue[row[x]]++
				local.green[row[x+1]]++
				local.red[row[x+2]]++
			}
		}

		mu.Lock()
		h.merge(&local)
		mu.Unlock()
	})

	h.count = 3 * buf.PixelCount()
	return h, nil
}

func (h *Histogram) merge(other *Histogram) {
	for i := 0; i < Bins; i++ {
		h.red[i] += other.red[i]
		h.green[i] += other.green[i]
		h.blue[i] += other.blue[i]
	}
}

func (h *Histogram) Red() Buckets   { return h.red }
func (h *Histogram) Green() Buckets { return h.green }
func (h *Histogram) Blue() Buckets  { return h.blue }

// Count returns the number of samples tallied: three per pixel.
func (h *Histogram) Count() int {
	return h.count
}

// HighestBucketValue returns the largest single bucket across all channels,
// for scaling a rendered chart.
func (h *Histogram) HighestBucketValue() int {
	highest := 0
	for i := 0; i < Bins; i++ {
		highest = max(highest, h.red[i], h.green[i], h.blue[i])
	}
	return highest
}

// Compare returns the overlap of the two distributions, the sum over all
// buckets of the smaller count divided by h's sample count. Identical
// distributions give 1; disjoint ones give 0.
func (h *Histogram) Compare(other *Histogram) float64 {
	if h.count == 0 || other == nil {
		return 0
	}

	overlap := 0
	for i := 0; i < Bins; i++ {
		overlap += min(h.red[i], other.red[i])
		overlap += min(h.green[i], other.green[i])
		overlap += min(h.blue[i], other.blue[i])
	}
	return float64(overlap) / float64(h.count)
}

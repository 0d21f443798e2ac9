package storage

import (
	"io"
	"sync"
)

// ProgressFunc receives the upload percentage, 0 to 100.
type ProgressFunc func(percent int)

// ProgressReader reports how much of a body has been read. Reported values
// never decrease, even if the consumer rewinds or re-reads the body.
type ProgressReader struct {
	r     io.Reader
	total int64
	fn    ProgressFunc

	mu   sync.Mutex
	read int64
	last int
}

// NewProgressReader wraps r. total <= 0 disables percentage reporting until EOF.
func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn, last: -1}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)

	p.mu.Lock()
	p.read += int64(n)
	percent := p.last
	if p.total > 0 {
		percent = int(p.read * 100 / p.total)
	}
	if err == io.EOF {
		percent = 100
	}
	if percent > 100 {
		percent = 100
	}
	report := percent > p.last
	if report {
		p.last = percent
	}
	p.mu.Unlock()

	if report && p.fn != nil {
		p.fn(percent)
	}
	return n, err
}

// Percent is the highest value reported so far, or 0.
func (p *ProgressReader) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last < 0 {
		return 0
	}
	return p.last
}

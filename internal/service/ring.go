package service

import "github.com/guttosm/candlefeed/internal/domain/models"

// tickRing keeps the most recent ticks of one symbol in a fixed-size
// circular buffer. Once full, each push overwrites the oldest tick.
type tickRing struct {
	buf   []models.Tick
	start int
	n     int
}

func newTickRing(size int) *tickRing {
	return &tickRing{buf: make([]models.Tick, size)}
}

func (r *tickRing) push(t models.Tick) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = t
		r.n++
		return
	}
	r.buf[r.start] = t
	r.start = (r.start + 1) % len(r.buf)
}

// each calls fn for every buffered tick, oldest first.
func (r *tickRing) each(fn func(models.Tick)) {
	for i := 0; i < r.n; i++ {
		fn(r.buf[(r.start+i)%len(r.buf)])
	}
}

func (r *tickRing) len() int { return r.n }

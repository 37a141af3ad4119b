package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// debugSampler lets one of every n high-volume debug records through.
type debugSampler struct {
	every atomic.Uint64
	seen  atomic.Uint64
}

func (s *debugSampler) setEvery(n uint64) {
	s.every.Store(n)
	s.seen.Store(0)
}

func (s *debugSampler) allow() bool {
	every := s.every.Load()
	if every <= 1 {
		return true
	}
	return s.seen.Add(1)%every == 1
}

// parseSampleEvery reads "n" or "1/n" and returns n. Anything unparsable,
// zero or negative samples nothing out.
func parseSampleEvery(raw string) uint64 {
	raw = strings.TrimSpace(raw)
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
			return 1
		}
		if every := d / n; every > 1 {
			return uint64(every)
		}
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 1 {
		return 1
	}
	return uint64(n)
}

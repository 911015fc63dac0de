package store

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// idSource hands out millisecond timestamp ids that never repeat within
// the process, even when two contacts are created in the same millisecond.
type idSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newIDSource() *idSource {
	return &idSource{now: time.Now}
}

func (s *idSource) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return strconv.FormatInt(ms, 10)
}

// nextWithSuffix is used for imported contacts.
func (s *idSource) nextWithSuffix() string {
	return s.next() + randomSuffix()
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

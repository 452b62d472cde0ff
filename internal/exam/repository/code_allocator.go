package repository

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"examhall/internal/common/cache"
	"examhall/pkg/utils/logger"
	appErr "examhall/pkg/errors"

	"go.uber.org/zap"
)

const (
	codeAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength         = 6
	codeReservePrefix  = "exam:code:"
	defaultCodeRetries = 10
)

// CodeAllocator hands out 6-character exam codes unique among all
// non-completed exams. The store is the authority within this process; the
// optional redis reservation (SetNX with TTL) additionally fences codes
// across restarts. Regenerate-on-collision with bounded retries.
type CodeAllocator struct {
	store      *ExamStore
	cache      cache.Cache
	reserveTTL time.Duration
	maxRetries int
}

// NewCodeAllocator creates an allocator. cache may be nil, in which case only
// the in-process store is consulted.
func NewCodeAllocator(store *ExamStore, c cache.Cache, reserveTTL time.Duration, maxRetries int) *CodeAllocator {
	if maxRetries <= 0 {
		maxRetries = defaultCodeRetries
	}
	return &CodeAllocator{
		store:      store,
		cache:      c,
		reserveTTL: reserveTTL,
		maxRetries: maxRetries,
	}
}

// Allocate returns a code not held by any live exam.
func (a *CodeAllocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", appErr.Wrap(err, appErr.ExamCreateFailed)
		}
		if a.store.CodeInUse(code) {
			continue
		}
		if a.cache != nil {
			ok, err := a.cache.SetNX(ctx, codeReservePrefix+code, 1, a.reserveTTL)
			if err != nil {
				// Reservation is an extra fence, not the authority.
				logger.Warn(ctx, "exam code reservation failed, falling back to store check",
					zap.String("code", code), zap.Error(err))
			} else if !ok {
				continue
			}
		}
		return code, nil
	}
	return "", appErr.New(appErr.ExamCodeExhausted)
}

// Release frees the reservation once an exam completes.
func (a *CodeAllocator) Release(ctx context.Context, code string) {
	if a.cache == nil || code == "" {
		return
	}
	if err := a.cache.Del(ctx, codeReservePrefix+code); err != nil {
		logger.Warn(ctx, "exam code release failed", zap.String("code", code), zap.Error(err))
	}
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

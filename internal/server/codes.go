package server

import (
	"context"

	"github.com/pmulch/gamekit/internal/game"
	"github.com/pmulch/gamekit/internal/ident"
	"github.com/pmulch/gamekit/internal/store"
)

const codeAttempts = 5

// Codes is the access-code service: it generates short codes and checks
// their uniqueness against the currently active games. The
// check-then-claim sequence is not transactional; two concurrent
// generations can race to the same code. The retry cap bounds the
// probability, it does not eliminate it.
type Codes struct {
	store *store.Store
}

func NewCodes(docs *store.Store) *Codes {
	return &Codes{store: docs}
}

// IsUnique reports whether no currently active game holds the code.
func (c *Codes) IsUnique(code string) bool {
	if code == "" {
		return false
	}
	return c.store.CountActiveByCode(code) == 0
}

// Unique generates a code not held by any active game, giving up with
// ErrTooManyAttempts after a bounded number of tries.
func (c *Codes) Unique(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := ident.AccessCode()
		if c.IsUnique(code) {
			return code, nil
		}
	}
	return "", game.ErrTooManyAttempts
}

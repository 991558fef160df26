package meeting

import (
	"context"
	"sync"
	"time"
)

// expirySkew refreshes tokens a little early so a token never expires
// mid-request.
const expirySkew = 60 * time.Second

// Token is a bearer credential with its upstream expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) usable(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-expirySkew))
}

// TokenCache holds one token per account id for the process lifetime.
// Safe for concurrent use.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]Token
	now    func() time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[string]Token), now: time.Now}
}

// Get returns the cached token for accountID, fetching a fresh one when
// the cache is empty or within the expiry skew. The fetch runs under the
// lock so concurrent callers never race to refresh the same account.
func (c *TokenCache) Get(ctx context.Context, accountID string, fetch func(context.Context) (Token, error)) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tokens[accountID]; ok && t.usable(c.now()) {
		return t, nil
	}

	t, err := fetch(ctx)
	if err != nil {
		return Token{}, err
	}
	c.tokens[accountID] = t
	return t, nil
}

package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/model"
)

const exchangeCodeTTL = 60 * time.Second

type exchangeEntry struct {
	pair      model.TokenPair
	expiresAt time.Time
}

// exchangeCodes is the in-process store for one-time federated login codes.
// Codes are short-lived and single-use, so process-local state is enough
// even behind the redirect round trip: the browser lands on the same
// deployment that minted the code moments earlier.
type exchangeCodes struct {
	mu    sync.Mutex
	codes map[string]exchangeEntry
}

func newExchangeCodes() *exchangeCodes {
	return &exchangeCodes{codes: map[string]exchangeEntry{}}
}

func (c *exchangeCodes) mint(pair model.TokenPair) string {
	code := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	c.codes[code] = exchangeEntry{pair: pair, expiresAt: time.Now().Add(exchangeCodeTTL)}
	return code
}

func (c *exchangeCodes) redeem(code string) (model.TokenPair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.codes[code]
	if !ok {
		return model.TokenPair{}, false
	}

	delete(c.codes, code)
	if time.Now().After(entry.expiresAt) {
		return model.TokenPair{}, false
	}
	return entry.pair, true
}

func (c *exchangeCodes) pruneLocked() {
	now := time.Now()
	for code, entry := range c.codes {
		if now.After(entry.expiresAt) {
			delete(c.codes, code)
		}
	}
}

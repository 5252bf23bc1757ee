package ledger

import "hash/fnv"

// HashRawID turns a broker supplied identifier into a compact key.
//
// The hash is FNV-1a 64, so keys are stable across runs and builds. It is not
// cryptographic, collisions are the broker's problem.
func HashRawID(rawID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(rawID))
	return h.Sum64()
}

// Currency is an ISO-4217 style tag such as "EUR".
type Currency string

// StockExchange names the venue an order is routed to.
type StockExchange string

// Package risk encodes guard-rails on how much size the router may execute.
package risk

import "fmt"

// Limits caps routed execution. Zero values disable a limit.
type Limits struct {
	MaxAmountPerSwap uint64
}

// Allow returns an error when the requested input amount breaches a limit.
func (l Limits) Allow(amount uint64) error {
	if l.MaxAmountPerSwap > 0 && amount > l.MaxAmountPerSwap {
		return fmt.Errorf("swap amount %d exceeds limit %d", amount, l.MaxAmountPerSwap)
	}
	return nil
}

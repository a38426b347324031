package routine

import "errors"

var (
	ErrCycle        = errors.New("next item chain would form a cycle")
	ErrChainTooLong = errors.New("next item chain is too long")
)

// MaxChainLength bounds how far a successor chain is followed.
const MaxChainLength = 256

// CheckChain verifies that pointing itemID at nextID keeps the successor
// chain acyclic. next returns the successor of an item, or "" at the end of
// the chain.
func CheckChain(itemID, nextID string, next func(id string) (string, error)) error {
	seen := make(map[string]bool)
	cur := nextID
	for steps := 0; cur != ""; steps++ {
		if cur == itemID || seen[cur] {
			return ErrCycle
		}
		if steps >= MaxChainLength {
			return ErrChainTooLong
		}
		seen[cur] = true

		succ, err := next(cur)
		if err != nil {
			return err
		}
		cur = succ
	}
	return nil
}

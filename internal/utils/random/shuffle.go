package random

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Shuffle performs a Fisher-Yates shuffle of slice in place, drawing indices
// from src. A nil src means crypto/rand.
func Shuffle[T any](src io.Reader, slice []T) error {
	if src == nil {
		src = rand.Reader
	}
	for i := len(slice) - 1; i > 0; i-- {
		jBig, err := rand.Int(src, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("failed to generate random number: %w", err)
		}
		j := int(jBig.Int64())
		slice[i], slice[j] = slice[j], slice[i]
	}
	return nil
}

// Sample returns up to n distinct elements of items in uniformly random order.
// items itself is left untouched.
func Sample[T any](src io.Reader, items []T, n int) ([]T, error) {
	shuffled := make([]T, len(items))
	copy(shuffled, items)
	if err := Shuffle(src, shuffled); err != nil {
		return nil, err
	}
	n = min(max(n, 0), len(shuffled))
	return shuffled[:n], nil
}

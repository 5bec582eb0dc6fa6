package onion

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// PathSelector supplies the randomness for relay selection. *math/rand.Rand satisfies it,
// so tests can pass a seeded source.
type PathSelector interface {
	// Perm returns a pseudo-random permutation of [0, n).
	Perm(n int) []int
}

// SecureSelector draws permutations from crypto/rand.
type SecureSelector struct{}

func (SecureSelector) Perm(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(uniform(uint64(i + 1)))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// uniform returns a uniformly distributed value in [0, n) using rejection sampling.
func uniform(n uint64) uint64 {
	limit := ^uint64(0) - ^uint64(0)%n
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(errors.Wrap(err, "crypto/rand failed"))
		}
		if v := binary.LittleEndian.Uint64(buf[:]); v < limit {
			return v % n
		}
	}
}

// DistinctRelays drops repeated registrations of the same identity, keeping the first one.
func DistinctRelays(relays []RelayDescriptor) []RelayDescriptor {
	seen := make(map[int]struct{}, len(relays))
	distinct := make([]RelayDescriptor, 0, len(relays))
	for _, r := range relays {
		if _, dup := seen[r.Identity]; dup {
			continue
		}
		seen[r.Identity] = struct{}{}
		distinct = append(distinct, r)
	}
	return distinct
}

// SelectCircuit picks CircuitLength distinct relays uniformly at random without replacement.
func SelectCircuit(relays []RelayDescriptor, selector PathSelector) ([]RelayDescriptor, error) {
	distinct := DistinctRelays(relays)
	if len(distinct) < CircuitLength {
		return nil, kindError(ErrInsufficientRelays, nil, "%d distinct relays available, need %d", len(distinct), CircuitLength)
	}
	// Selection must not depend on registration order.
	slices.SortFunc(distinct, func(a, b RelayDescriptor) bool {
		return a.Identity < b.Identity
	})

	perm := selector.Perm(len(distinct))
	circuit := make([]RelayDescriptor, CircuitLength)
	for i := range circuit {
		circuit[i] = distinct[perm[i]]
	}
	return circuit, nil
}

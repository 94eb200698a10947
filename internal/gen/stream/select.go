package stream

import (
	"errors"
	"fmt"
)

var ErrNoCandidates = errors.New("no candidates")

// Selector picks a candidate from a value in [0,1) so that, over uniform
// inputs, each candidate's frequency equals its relative weight. Ties fall to
// declaration order.
type Selector[T any] struct {
	cands []T
	cum   []float64
}

func NewSelector[T any](cands []T, weights []float64) (*Selector[T], error) {
	if len(cands) == 0 {
		return nil, ErrNoCandidates
	}
	if len(weights) != len(cands) {
		return nil, fmt.Errorf("selector: %d candidates but %d weights", len(cands), len(weights))
	}
	var total float64
	for i, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("selector: weight[%d]=%g must be > 0", i, w)
		}
		total += w
	}
	cum := make([]float64, len(weights))
	var acc float64
	for i, w := range weights {
		acc += w
		cum[i] = acc / total
	}
	cum[len(cum)-1] = 1
	return &Selector[T]{cands: append([]T(nil), cands...), cum: cum}, nil
}

func (s *Selector[T]) Pick(v float64) T {
	for i, c := range s.cum {
		if v < c {
			return s.cands[i]
		}
	}
	return s.cands[len(s.cands)-1]
}

func (s *Selector[T]) Len() int { return len(s.cands) }

// SelectWeighted maps a [0,1) stream onto weighted candidates.
func SelectWeighted[T any](s Stream[float64], cands []T, weights []float64) (Stream[T], error) {
	sel, err := NewSelector(cands, weights)
	if err != nil {
		return Stream[T]{}, err
	}
	return Stream[T]{
		node: newNode(KindSelect, fmt.Sprintf("n=%d", len(cands)), s.node),
		get2: func(x, z float64) T { return sel.Pick(s.Get(x, z)) },
		get3: func(x, y, z float64) T { return sel.Pick(s.Get3(x, y, z)) },
	}, nil
}

// SelectRarity weights each candidate by 1/rarity.
func SelectRarity[T any](s Stream[float64], cands []T, rarities []int) (Stream[T], error) {
	w, err := RarityWeights(rarities)
	if err != nil {
		return Stream[T]{}, err
	}
	return SelectWeighted(s, cands, w)
}

func RarityWeights(rarities []int) ([]float64, error) {
	w := make([]float64, len(rarities))
	for i, r := range rarities {
		if r <= 0 {
			return nil, fmt.Errorf("rarity[%d]=%d must be > 0", i, r)
		}
		w[i] = 1 / float64(r)
	}
	return w, nil
}

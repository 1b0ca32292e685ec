package rotation

import (
	"math/rand"
	"sync"
)

// maxResamples bounds how many times PickNext re-draws to avoid repeating
// the previous pick. If every attempt collides, the collision is accepted;
// this is a bounded-retry policy, not a no-repeat guarantee.
const maxResamples = 6

// BucketIndex partitions clips by orientation and remembers the most recent
// pick per orientation so immediate repeats are usually avoided. Rebuilt
// wholesale whenever the clip set changes.
type BucketIndex struct {
	mu       sync.Mutex
	buckets  map[Orientation][]*Clip
	all      []*Clip
	lastPick map[Orientation]*Clip
	rng      *rand.Rand
}

// BuildIndex groups clips by Classify(clip.Width, clip.Height). Clips are
// stored as-is; each appears in exactly one bucket.
func BuildIndex(clips []*Clip, rng *rand.Rand) *BucketIndex {
	idx := &BucketIndex{
		buckets:  make(map[Orientation][]*Clip),
		lastPick: make(map[Orientation]*Clip),
		rng:      rng,
	}
	for _, c := range clips {
		o := Classify(c.Width, c.Height)
		c.Orientation = o
		idx.buckets[o] = append(idx.buckets[o], c)
		idx.all = append(idx.all, c)
	}
	return idx
}

// Len returns the total number of clips across all buckets.
func (idx *BucketIndex) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.all)
}

// BucketLen returns the number of clips in one bucket.
func (idx *BucketIndex) BucketLen(o Orientation) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.buckets[o])
}

// PickNext returns a random clip from the requested bucket, avoiding the
// immediately prior pick for that orientation when the bucket has more than
// one element. Returns nil for an empty bucket. A singleton bucket always
// returns its element; repeats are unavoidable there.
func (idx *BucketIndex) PickNext(o Orientation) *Clip {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	bucket := idx.buckets[o]
	switch len(bucket) {
	case 0:
		return nil
	case 1:
		idx.lastPick[o] = bucket[0]
		return bucket[0]
	}

	pick := bucket[idx.rng.Intn(len(bucket))]
	for i := 0; i < maxResamples && pick == idx.lastPick[o]; i++ {
		pick = bucket[idx.rng.Intn(len(bucket))]
	}
	idx.lastPick[o] = pick
	return pick
}

// PickAny returns a uniformly random clip from the whole library, or nil if
// the library is empty. Last resort of the fallback chain.
func (idx *BucketIndex) PickAny() *Clip {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(idx.all) == 0 {
		return nil
	}
	return idx.all[idx.rng.Intn(len(idx.all))]
}

// PickForScreen walks the mandatory fallback chain: the requested
// orientation's bucket, then square, then any clip at all. Returns nil only
// when the library is empty, so rotation never stalls merely because one
// bucket is empty.
func (idx *BucketIndex) PickForScreen(o Orientation) *Clip {
	if c := idx.PickNext(o); c != nil {
		return c
	}
	if o != Square {
		if c := idx.PickNext(Square); c != nil {
			return c
		}
	}
	return idx.PickAny()
}

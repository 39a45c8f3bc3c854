package systems

import (
	"sync/atomic"

	"github.com/pthm-cable/swarm/components"
)

// GroupSize is the number of work items per work group. Histogram buckets
// are kept per group so atomic contention during the histogram phase stays
// local; cross-group ordering is resolved by summing group totals during
// scatter.
const GroupSize = 256

// NumGroups returns how many work groups cover n work items.
func NumGroups(n int) int {
	return (n + GroupSize - 1) / GroupSize
}

// Histogram is the [group][digit position][symbol] count table for the
// radix sort. For any fixed group and digit position the four symbol
// buckets sum to the number of entries assigned to that group.
type Histogram struct {
	groups int
	counts []atomic.Uint32
}

// NewHistogram creates a histogram table covering n sort entries.
func NewHistogram(n int) *Histogram {
	groups := NumGroups(n)
	return &Histogram{
		groups: groups,
		counts: make([]atomic.Uint32, groups*components.RadixDigits*components.RadixSymbols),
	}
}

// Groups returns the number of work groups the table covers.
func (h *Histogram) Groups() int { return h.groups }

func (h *Histogram) bucket(group, pos, sym int) *atomic.Uint32 {
	return &h.counts[(group*components.RadixDigits+pos)*components.RadixSymbols+sym]
}

// Count returns one bucket. Only meaningful after the histogram barrier.
func (h *Histogram) Count(group, pos, sym int) uint32 {
	return h.bucket(group, pos, sym).Load()
}

// Reset zeroes every bucket of one digit position. Each sort pass histograms
// the previous pass's output order, so its position must start clean.
func (h *Histogram) Reset(pos int) {
	for g := 0; g < h.groups; g++ {
		for sym := 0; sym < components.RadixSymbols; sym++ {
			h.bucket(g, pos, sym).Store(0)
		}
	}
}

// symbolBase returns the total count, over all groups, of symbols strictly
// below sym at the given digit position: the first output slot owned by sym.
func (h *Histogram) symbolBase(pos, sym int) uint32 {
	var base uint32
	for s := 0; s < sym; s++ {
		for g := 0; g < h.groups; g++ {
			base += h.Count(g, pos, s)
		}
	}
	return base
}

// lowerGroupCount returns how many entries with the same symbol sit in
// groups below group.
func (h *Histogram) lowerGroupCount(group, pos, sym int) uint32 {
	var n uint32
	for g := 0; g < group; g++ {
		n += h.Count(g, pos, sym)
	}
	return n
}

// Digit extracts the 2-bit symbol of key at digit position pos
// (0 = least significant).
func Digit(key uint32, pos int) int {
	return int(key>>(uint(pos)*components.RadixBits)) & (components.RadixSymbols - 1)
}

// HistogramDigit is the per-entry kernel of the histogram phase for one
// digit position: it tallies entry i's symbol into its group's bucket.
func HistogramDigit(h *Histogram, entries []components.MortonEntry, pos, i int) {
	group := i / GroupSize
	h.bucket(group, pos, Digit(entries[i].Key, pos)).Add(1)
}

// ScatterDigit is the per-entry kernel of the scatter phase for one digit
// position. The destination slot is the symbol's global base, plus the
// same-symbol population of lower-index groups, plus the entry's stable rank
// within its own group (recomputed by re-scanning the group). Run over a
// fully built histogram for the same pos and entry order, this is one pass
// of a stable LSD radix sort and a bijection over the slots.
func ScatterDigit(h *Histogram, src, dst []components.MortonEntry, pos, i int) {
	sym := Digit(src[i].Key, pos)
	group := i / GroupSize

	dest := h.symbolBase(pos, sym) + h.lowerGroupCount(group, pos, sym)
	for j := group * GroupSize; j < i; j++ {
		if Digit(src[j].Key, pos) == sym {
			dest++
		}
	}

	dst[dest] = src[i]
}

// ResolveSort is the per-slot kernel of the final reorder: the scratch
// particle named by the fully sorted entry in slot i lands at slot i of the
// primary store, leaving the store Morton-ordered for the next frame.
func ResolveSort(particles, scratch []components.Particle, sorted []components.MortonEntry, i int) {
	particles[i] = scratch[sorted[i].Index]
}

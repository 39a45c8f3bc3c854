package components

// Morton key geometry: 10 bits per axis interleaved into a 30-bit key,
// consumed by the radix sort as 15 two-bit digits.
const (
	MortonAxisBits = 10
	MortonKeyBits  = 3 * MortonAxisBits

	RadixBits    = 2
	RadixSymbols = 1 << RadixBits
	RadixDigits  = MortonKeyBits / RadixBits

	// MaxMortonKey is the largest encodable key. Inactive particle slots
	// are assigned this key so they sort to the tail of the store.
	MaxMortonKey = 1<<MortonKeyBits - 1
)

// MortonEntry pairs a particle slot with its spatial sort key. The entry
// array is rebuilt every frame by the Morton coder and consumed (then
// discarded) by the histogram and scatter phases.
type MortonEntry struct {
	Index uint32 // original particle slot
	Key   uint32 // 30-bit Z-order key
}

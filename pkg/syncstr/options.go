package syncstr

// Growth selects how capacity-increasing operations size new storage.
type Growth uint8

const (
	// GrowMinimal grows storage to exactly the new length plus the sentinel.
	GrowMinimal Growth = iota
	// GrowGeometric at least doubles the capacity on each growth, trading
	// memory for fewer reallocations.
	GrowGeometric
)

// String returns the name used in configuration.
func (g Growth) String() string {
	switch g {
	case GrowGeometric:
		return "geometric"
	default:
		return "minimal"
	}
}

// ParseGrowth parses "minimal" or "geometric". Unknown names yield GrowMinimal.
func ParseGrowth(s string) Growth {
	switch s {
	case "geometric", "GEOMETRIC", "double":
		return GrowGeometric
	default:
		return GrowMinimal
	}
}

func (g Growth) capacityFor(need, current int) int {
	if g == GrowGeometric && 2*current > need {
		return 2 * current
	}
	return need
}

// Option configures a Buffer at construction.
type Option func(*Buffer)

// WithAllocator sets the storage allocator.
func WithAllocator(a Allocator) Option {
	return func(b *Buffer) {
		if a != nil {
			b.alloc = a
		}
	}
}

// WithEncoder sets the encoder used for wide text.
func WithEncoder(e Encoder) Option {
	return func(b *Buffer) {
		if e != nil {
			b.enc = e
		}
	}
}

// WithGrowth sets the growth policy.
func WithGrowth(g Growth) Option {
	return func(b *Buffer) {
		b.growth = g
	}
}

// Package effect defines the opaque, clonable payload carried through the
// EEE runtime. The core treats every Effect as an opaque value; it never
// inspects payloads beyond cloning them, per spec.md's framing of the
// payload taxonomy as out of scope for the core.
package effect

// Effect is an opaque, clonable value carried between Environments and
// Entities.
type Effect interface {
	// Clone returns an independent copy of this Effect.
	Clone() Effect
	// String renders the Effect for logging and diagnostics.
	String() string
}

// Empty is the effect carrying no payload.
type Empty struct{}

func (Empty) Clone() Effect  { return Empty{} }
func (Empty) String() string { return "()" }

// ASCII is an ASCII text payload, the variant every scenario in spec.md
// §8 submits and receives.
type ASCII string

func (a ASCII) Clone() Effect  { return a }
func (a ASCII) String() string { return string(a) }

// Bytes is an opaque byte-slice payload, used by the AMQP bridge which
// carries arbitrary message bodies.
type Bytes []byte

func (b Bytes) Clone() Effect {
	c := make(Bytes, len(b))
	copy(c, b)
	return c
}

func (b Bytes) String() string { return string(b) }

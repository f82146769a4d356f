package eee

import "github.com/webitel/eee-runtime/internal/effect"

// Core is the pure transformer an Entity applies to every effect it
// receives from a joined Environment before publishing to its affected
// Environments. The boolean return resolves spec.md §9's open question on
// empty-effect suppression: ok=false suppresses publication entirely;
// ok=true with an effect.Empty{} payload still publishes the empty
// marker.
type Core func(effect.Effect) (out effect.Effect, ok bool)

// IdentityCore is the default Core: it passes every effect through
// unchanged.
func IdentityCore(e effect.Effect) (effect.Effect, bool) { return e, true }

// DropCore is the other default spec.md names explicitly: it suppresses
// every effect, useful for an Entity that only observes (updates
// num_received) without producing output.
func DropCore(effect.Effect) (effect.Effect, bool) { return nil, false }

package admin

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/webitel/eee-runtime/internal/effect"
)

// recentEffects is a bounded, per-environment ring of the last few
// delivered effects, so the diagnostics surface can answer "what did this
// environment just see" without holding an unbounded buffer. It is purely
// diagnostic: the core's delivery path never reads from it.
type recentEffects struct {
	byEnv *lru.Cache[string, []string]
	limit int
}

func newRecentEffects(envCapacity, perEnvLimit int) *recentEffects {
	cache, _ := lru.New[string, []string](envCapacity)
	return &recentEffects{byEnv: cache, limit: perEnvLimit}
}

func (r *recentEffects) record(env string, eff effect.Effect) {
	samples, _ := r.byEnv.Get(env)
	samples = append(samples, eff.String())
	if len(samples) > r.limit {
		samples = samples[len(samples)-r.limit:]
	}
	r.byEnv.Add(env, samples)
}

func (r *recentEffects) snapshot(env string) []string {
	samples, ok := r.byEnv.Get(env)
	if !ok {
		return nil
	}
	out := make([]string, len(samples))
	copy(out, samples)
	return out
}

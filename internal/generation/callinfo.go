package generation

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/ideaforge-api/internal/llm"
)

// CallInfo reports which model served a call and what it consumed. Handlers
// use it for credit accounting and usage logs.
type CallInfo struct {
	Model    string
	Provider string
	Usage    llm.Usage
	Duration time.Duration
}

type callInfoKey struct{}

// TrackCall returns a context that records the provider call made with it.
func TrackCall(ctx context.Context) (context.Context, *CallInfo) {
	info := &CallInfo{}
	return context.WithValue(ctx, callInfoKey{}, info), info
}

func recordCall(ctx context.Context, obs Observation) {
	info, ok := ctx.Value(callInfoKey{}).(*CallInfo)
	if !ok {
		return
	}
	info.Model = obs.Model
	info.Provider = obs.Provider
	info.Usage = obs.Usage
	info.Duration = obs.Duration
}

package gateway

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
)

// pollerSet owns one background poller per bound plugin, each comparing the
// plugin's tools/list fingerprint on an interval and invoking notify when it
// changes. An errgroup coordinates shutdown of every poller goroutine
// together when the router stops.
type pollerSet struct {
	interval time.Duration
	client   httpDoer
	notify   Notifier

	mu      sync.Mutex
	started map[string]context.CancelFunc
	group   *errgroup.Group
}

func newPollerSet(interval time.Duration, client httpDoer, notify Notifier) *pollerSet {
	return &pollerSet{
		interval: interval,
		client:   client,
		notify:   notify,
		started:  make(map[string]context.CancelFunc),
		group:    &errgroup.Group{},
	}
}

// ensure starts a poller for binding's plugin id if one is not already
// running. Idempotent: a second call for the same plugin id is a no-op.
func (p *pollerSet) ensure(binding *PluginBinding) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.started[binding.ID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.started[binding.ID] = cancel

	boundBinding := *binding
	p.group.Go(func() error {
		p.run(ctx, &boundBinding)
		return nil
	})
}

// run polls until ctx is cancelled, emitting notify on every fingerprint
// change. Polling errors are logged, not fatal: a transient plugin outage
// must not tear down sessions bound to it.
func (p *pollerSet) run(ctx context.Context, binding *PluginBinding) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fingerprint, err := fetchUpstreamToolsFingerprint(ctx, p.client, binding)
			if err != nil {
				logging.Warn("UpstreamRouter", "tool-list poll failed for plugin %s:%d: %v", binding.Host, binding.Port, err)
				continue
			}
			if last != "" && fingerprint != last && p.notify != nil {
				p.notify(binding.ID)
			}
			last = fingerprint
		}
	}
}

// stopAll cancels every running poller and waits for them to exit.
func (p *pollerSet) stopAll() {
	p.mu.Lock()
	for _, cancel := range p.started {
		cancel()
	}
	p.started = make(map[string]context.CancelFunc)
	p.mu.Unlock()

	_ = p.group.Wait()
}

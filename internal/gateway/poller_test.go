package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequencedFingerprintBridge struct {
	hashes []string
	calls  int32
}

func (f *sequencedFingerprintBridge) Do(req *http.Request) (*http.Response, error) {
	i := atomic.AddInt32(&f.calls, 1) - 1
	idx := int(i)
	if idx >= len(f.hashes) {
		idx = len(f.hashes) - 1
	}
	body, _ := json.Marshal(map[string]interface{}{"hash": f.hashes[idx]})
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(string(body)))}, nil
}

func TestPollerSet_NotifiesOnFingerprintChange(t *testing.T) {
	fake := &sequencedFingerprintBridge{hashes: []string{"fp-1", "fp-1", "fp-2", "fp-2"}}

	var notified int32
	notify := func(pluginID string) { atomic.AddInt32(&notified, 1) }

	p := newPollerSet(20*time.Millisecond, fake, notify)
	defer p.stopAll()

	p.ensure(&PluginBinding{ID: "plugin-1", Host: "127.0.0.1", Port: 9000})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&notified) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&notified), int32(1))
}

func TestPollerSet_EnsureIsIdempotent(t *testing.T) {
	fake := &sequencedFingerprintBridge{hashes: []string{"fp-1"}}
	p := newPollerSet(time.Hour, fake, nil)
	defer p.stopAll()

	binding := &PluginBinding{ID: "plugin-1", Host: "127.0.0.1", Port: 9000}
	p.ensure(binding)
	p.ensure(binding)

	p.mu.Lock()
	count := len(p.started)
	p.mu.Unlock()
	assert.Equal(t, 1, count)
}

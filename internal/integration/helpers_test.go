package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/edge-telemetry/internal/channel"
	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

// memoryChannel stores published messages in order.
type memoryChannel struct {
	mu       sync.Mutex
	messages []telemetry.OutboundMessage
	closed   bool
	// onPublish runs after message n (1-based) is stored.
	onPublish func(n int)
}

func (c *memoryChannel) Publish(_ context.Context, msg channel.Message) error {
	var decoded telemetry.OutboundMessage
	if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
		return err
	}

	c.mu.Lock()
	c.messages = append(c.messages, decoded)
	n := len(c.messages)
	c.mu.Unlock()

	if c.onPublish != nil {
		c.onPublish(n)
	}

	return nil
}

func (c *memoryChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

func (c *memoryChannel) published() []telemetry.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]telemetry.OutboundMessage(nil), c.messages...)
}

// writeImage stores a fake bitmap in a temporary directory.
func writeImage(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "temp.bmp")
	require.NoError(t, os.WriteFile(path, []byte("BM-integration"), 0o600))

	return path
}

// counterValue returns the value of the counter series name{label=value}.
func counterValue(t *testing.T, gatherer prometheus.Gatherer, name, label, value string) float64 {
	t.Helper()

	families, err := gatherer.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			if hasLabel(metric, label, value) {
				return metric.GetCounter().GetValue()
			}
		}
	}

	return 0
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	if name == "" {
		return true
	}

	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name && pair.GetValue() == value {
			return true
		}
	}

	return false
}

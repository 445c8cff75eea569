package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unkn0wn-root/nscache"
)

type counting struct {
	nscache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (c *counting) add(ev string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *counting) VersionInitialized(string, uint64)    { c.add("init") }
func (c *counting) VersionLoaded(string, uint64)         { c.add("load") }
func (c *counting) VersionBumped(string, uint64, uint64) { c.add("bump") }
func (c *counting) RememberComputed(string, string)      { c.add("computed") }
func (c *counting) ProducerFailed(string, string, error) { c.add("failed") }
func (c *counting) SaveRejected(string)                  { c.add("rejected") }

func TestDeliversAllEventsBeforeClose(t *testing.T) {
	inner := &counting{}
	h := New(inner, 2, 16)

	h.VersionInitialized("ns", 1)
	h.VersionLoaded("ns", 1)
	h.VersionBumped("ns", 1, 2)
	h.RememberComputed("ns", "k")
	h.ProducerFailed("ns", "k", errors.New("boom"))
	h.SaveRejected("ns[k][2]")
	h.Close()

	require.ElementsMatch(t, []string{"init", "load", "bump", "computed", "failed", "rejected"}, inner.events)
	require.Zero(t, h.Dropped())
}

func TestDropsWhenFullAndAfterClose(t *testing.T) {
	inner := &counting{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// one event held by the worker, one queued, the rest dropped
	for i := 0; i < 10; i++ {
		h.SaveRejected("k")
	}
	require.GreaterOrEqual(t, h.Dropped(), uint64(8))

	close(inner.block)
	h.Close()
	h.Close()

	before := h.Dropped()
	h.RememberComputed("ns", "k")
	require.Equal(t, before+1, h.Dropped())
}

func TestNilInner(t *testing.T) {
	h := New(nil, 0, 0)
	h.VersionBumped("ns", 1, 2)
	h.Close()
}

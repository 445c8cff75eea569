// Package sloghooks logs nscache hook events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/nscache"
)

type Options struct {
	// Sampling to avoid floods on hot paths; 0/1 = log all.
	ComputedEvery uint64
	RejectedEvery uint64
	// Optional key redactor for user keys and storage keys. Defaults to a
	// SHA-256 prefix. Namespaces are logged as is.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	computedCtr atomic.Uint64
	rejectedCtr atomic.Uint64
}

var _ nscache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) VersionInitialized(ns string, version uint64) {
	if h.l == nil {
		return
	}
	h.l.Info("nscache.version_initialized",
		"ns", ns,
		"version", version)
}

func (h *Hooks) VersionLoaded(ns string, version uint64) {
	if h.l == nil {
		return
	}
	h.l.Debug("nscache.version_loaded",
		"ns", ns,
		"version", version)
}

func (h *Hooks) VersionBumped(ns string, from, to uint64) {
	if h.l == nil {
		return
	}
	h.l.Info("nscache.version_bumped",
		"ns", ns,
		"from", from,
		"to", to)
}

func (h *Hooks) RememberComputed(ns, key string) {
	if h.l == nil || !sample(h.opts.ComputedEvery, &h.computedCtr) {
		return
	}
	h.l.Debug("nscache.remember_computed",
		"ns", ns,
		"key", h.redact(key))
}

func (h *Hooks) ProducerFailed(ns, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("nscache.producer_failed",
		"ns", ns,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) SaveRejected(storageKey string) {
	if h.l == nil || !sample(h.opts.RejectedEvery, &h.rejectedCtr) {
		return
	}
	h.l.Warn("nscache.save_rejected",
		"key", h.redact(storageKey))
}

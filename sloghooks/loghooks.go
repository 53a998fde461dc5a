// Package sloghooks adapts kvgate.Hooks onto a slog.Logger.
//
// Backend keys embed the namespace token, so they are redacted before
// logging (SHA-256 prefix by default). Rejection events can be sampled to
// keep a brute-force attempt from flooding the log.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvgate"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	AuthRejectedEvery uint64
	ScanSkippedEvery  uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	authRejCtr  atomic.Uint64
	scanSkipCtr atomic.Uint64
}

var _ kvgate.Hooks = (*Hooks)(nil)

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

func (h *Hooks) AuthRejected(op string) {
	if h.l == nil || !sample(h.opts.AuthRejectedEvery, &h.authRejCtr) {
		return
	}
	h.l.Info("kvgate.auth_rejected", "op", op)
}

func (h *Hooks) BackendFault(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("kvgate.backend_fault", "op", op, "err", err)
}

func (h *Hooks) ScanSkipped(backendKey string) {
	if h.l == nil || !sample(h.opts.ScanSkippedEvery, &h.scanSkipCtr) {
		return
	}
	h.l.Error("kvgate.scan_skipped", "key", h.redact(backendKey))
}

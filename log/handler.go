// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// levelHandler drops records below a level that can change at runtime.
type levelHandler struct {
	next  slog.Handler
	level slog.Leveler
}

func (h *levelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{h.next.WithAttrs(attrs), h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{h.next.WithGroup(name), h.level}
}

// NewTerminalHandler returns a human readable handler writing records at or
// above level.
func NewTerminalHandler(wr io.Writer, level *slog.LevelVar, useColor bool) slog.Handler {
	return &levelHandler{ethlog.NewTerminalHandler(wr, useColor), level}
}

// JSONHandler returns a handler writing one JSON object per record at or
// above level.
func JSONHandler(wr io.Writer, level *slog.LevelVar) slog.Handler {
	return &levelHandler{ethlog.JSONHandler(wr), level}
}

// FromVerbosity maps a 0 (crit) to 5 (trace) verbosity to a level.
func FromVerbosity(v int) slog.Level {
	return ethlog.FromLegacyLevel(v)
}

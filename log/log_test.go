// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var early = WithContext("pkg", "early")

func withRoot(t *testing.T, h slog.Handler) {
	prev := ethlog.Root()
	SetDefault(h)
	t.Cleanup(func() { ethlog.SetDefault(prev) })
}

func TestWithContext_FollowsRoot(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	withRoot(t, JSONHandler(&buf, level))

	early.Info("hello", "n", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "early", rec["pkg"])
	assert.Equal(t, float64(1), rec["n"])
}

func TestLevelHandler(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	withRoot(t, JSONHandler(&buf, level))

	logger := WithContext("pkg", "test")
	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")

	buf.Reset()
	level.Set(slog.LevelDebug)
	logger.Debug("now kept")
	assert.Contains(t, buf.String(), "now kept")
}

func TestTerminalHandler(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	withRoot(t, NewTerminalHandler(&buf, level, false))

	WithContext("pkg", "term").Info("started", "addr", "localhost")
	assert.Contains(t, buf.String(), "started")
	assert.Contains(t, buf.String(), "addr=localhost")
}

func TestFromVerbosity(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, FromVerbosity(3))
	assert.Equal(t, slog.LevelWarn, FromVerbosity(2))
	assert.Less(t, FromVerbosity(5), slog.LevelDebug)
}

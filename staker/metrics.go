// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import "github.com/stakedash/stakedash/metrics"

var (
	metricTransitionCounter = metrics.LazyLoadCounterVec("staker_transition_count", []string{"kind"})
	metricFailureCounter    = metrics.LazyLoadCounterVec("staker_failure_count", []string{"op", "code"})
	metricLockedStakeGauge  = metrics.LazyLoadGauge("staker_locked_tokens")
)

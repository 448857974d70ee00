// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package grant

import "github.com/stakedash/stakedash/metrics"

var metricGrantCounter = metrics.LazyLoadCounterVec("grant_operation_count", []string{"op"})

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"strings"

	"github.com/stakedash/stakedash/metrics"
)

var (
	metricInsertCounter     = metrics.LazyLoadCounter("eventdb_insert_count")
	metricQueryParameters   = metrics.LazyLoadCounterVec("eventdb_query_parameters", []string{"parameters"})
	metricQueryOrderCounter = metrics.LazyLoadCounterVec("eventdb_query_order", []string{"order"})
	metricQueryLimitBucket  = metrics.LazyLoadHistogram("eventdb_query_limit_bucket", []int64{0, 5, 10, 25, 50, 100, 250, 500, 1000})
)

func metricsHandleFilter(filter *Filter) {
	if metrics.NoOp() {
		return
	}

	params := make([]string, 0, 4)
	if filter.Operator != nil {
		params = append(params, "operator")
	}
	if len(filter.Kinds) > 0 {
		params = append(params, "kind")
	}
	if filter.Grant != nil {
		params = append(params, "grant")
	}
	if filter.Range != nil {
		params = append(params, "range")
	}
	if len(params) == 0 {
		params = append(params, "none")
	}
	metricQueryParameters().AddWithLabel(1, map[string]string{"parameters": strings.Join(params, ",")})

	order := string(filter.Order)
	if order == "" {
		order = string(ASC)
	}
	metricQueryOrderCounter().AddWithLabel(1, map[string]string{"order": order})

	if filter.Options != nil {
		metricQueryLimitBucket().Observe(int64(filter.Options.Limit))
	}
}

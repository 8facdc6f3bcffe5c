// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	m := defaultNoopMetrics()
	assert.Nil(t, m.GetOrCreateHandler())

	// every meter is usable and inert, whatever the labels
	labels := map[string]string{"unknown": "label"}
	m.GetOrCreateCountMeter("c").Add(1)
	m.GetOrCreateCountVecMeter("cv", []string{"kind"}).AddWithLabel(1, labels)
	m.GetOrCreateGaugeMeter("g").Set(5)
	m.GetOrCreateGaugeVecMeter("gv", nil).SetWithLabel(5, labels)
	m.GetOrCreateHistogramMeter("h", nil).Observe(1)
	m.GetOrCreateHistogramVecMeter("hv", nil, nil).ObserveWithLabels(1, labels)

	assert.Same(t, m.GetOrCreateCountMeter("a"), m.GetOrCreateGaugeMeter("b"))
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tier

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/tierstake/thor"
)

// Tier is a fixed lock duration with an annual yield rate and a referral commission rate.
type Tier struct {
	ID            uint8  `yaml:"id" json:"id"`
	Days          uint64 `yaml:"days" json:"days"`
	RateBP        uint64 `yaml:"rate_bp" json:"rateBP"`               // annual, in basis points
	CommissionPct uint64 `yaml:"commission_pct" json:"commissionPct"` // percent of principal
}

// Duration returns the lock duration in seconds.
func (t Tier) Duration() uint64 {
	return t.Days * thor.SecondsPerDay
}

func (t Tier) Validate() error {
	if t.ID == 0 {
		return errors.New("tier id must be non-zero")
	}
	if t.Days == 0 {
		return errors.Errorf("tier %d: zero duration", t.ID)
	}
	if t.RateBP > thor.BasisPoints {
		return errors.Errorf("tier %d: rate %d bp above 100%%", t.ID, t.RateBP)
	}
	if t.CommissionPct > 100 {
		return errors.Errorf("tier %d: commission %d%% above 100%%", t.ID, t.CommissionPct)
	}
	return nil
}

// Default returns the 90/180/365 day tiers.
func Default() []Tier {
	return []Tier{
		{ID: 1, Days: 90, RateBP: 200, CommissionPct: 1},
		{ID: 2, Days: 180, RateBP: 500, CommissionPct: 2},
		{ID: 3, Days: 365, RateBP: 1000, CommissionPct: 3},
	}
}

// Set is the closed set of allowed tiers.
type Set struct {
	tiers map[uint8]Tier
	ids   []uint8
}

// NewSet validates tiers and indexes them by id.
func NewSet(tiers []Tier) (*Set, error) {
	if len(tiers) == 0 {
		return nil, errors.New("no tiers configured")
	}
	s := &Set{tiers: make(map[uint8]Tier, len(tiers))}
	for _, t := range tiers {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.tiers[t.ID]; dup {
			return nil, errors.Errorf("duplicate tier id %d", t.ID)
		}
		s.tiers[t.ID] = t
		s.ids = append(s.ids, t.ID)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s, nil
}

func (s *Set) Get(id uint8) (Tier, bool) {
	t, ok := s.tiers[id]
	return t, ok
}

// IDs returns tier ids in ascending order.
func (s *Set) IDs() []uint8 {
	return append([]uint8(nil), s.ids...)
}

// All returns the tiers in ascending id order.
func (s *Set) All() []Tier {
	out := make([]Tier, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.tiers[id])
	}
	return out
}

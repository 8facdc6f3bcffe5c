// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package authority

import (
	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/thor"
)

var (
	adminsKey = thor.Blake2b([]byte("admins"))
	countKey  = thor.Blake2b([]byte("admin-count"))
)

// Authority keeps the set of addresses holding the administrative capability.
type Authority struct {
	admins *solidity.Mapping[thor.Address, bool]
	count  *solidity.Raw[uint64]
}

// New create a new instance.
func New(context *solidity.Context) *Authority {
	return &Authority{
		admins: solidity.NewMapping[thor.Address, bool](context, adminsKey),
		count:  solidity.NewRaw[uint64](context, countKey),
	}
}

// IsAdmin implements the authorization port.
func (a *Authority) IsAdmin(addr thor.Address) (bool, error) {
	return a.admins.Get(addr)
}

// Add grants the capability. It returns false if addr is already an admin.
func (a *Authority) Add(addr thor.Address) (bool, error) {
	listed, err := a.admins.Get(addr)
	if err != nil {
		return false, err
	}
	if listed {
		return false, nil
	}
	if err := a.admins.Set(addr, true, true); err != nil {
		return false, err
	}
	count, err := a.count.Get()
	if err != nil {
		return false, err
	}
	return true, a.count.Set(count + 1)
}

// Revoke removes the capability. It returns false if addr is not an admin.
func (a *Authority) Revoke(addr thor.Address) (bool, error) {
	listed, err := a.admins.Get(addr)
	if err != nil {
		return false, err
	}
	if !listed {
		return false, nil
	}
	if err := a.admins.Delete(addr); err != nil {
		return false, err
	}
	count, err := a.count.Get()
	if err != nil {
		return false, err
	}
	return true, a.count.Set(count - 1)
}

// Count returns the number of admins.
func (a *Authority) Count() (uint64, error) {
	return a.count.Get()
}

// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/vechain/tierstake/builtin/gascharger"
	"github.com/vechain/tierstake/builtin/params"
	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/accrual"
	"github.com/vechain/tierstake/builtin/staker/events"
	"github.com/vechain/tierstake/builtin/staker/pool"
	"github.com/vechain/tierstake/builtin/staker/referral"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/builtin/staker/stakes"
	"github.com/vechain/tierstake/builtin/staker/tier"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/thor"
)

var logger = log.New("pkg", "staker")

func SetLogger(l log.Logger) {
	logger = l
}

// ValueLedger is the host ledger holding staked and reward value.
type ValueLedger interface {
	BalanceOf(addr thor.Address) (*big.Int, error)
	Transfer(from, to thor.Address, amount *big.Int) error
	TransferFrom(spender, from, to thor.Address, amount *big.Int) error
	Allowance(owner, spender thor.Address) (*big.Int, error)
	Approve(owner, spender thor.Address, amount *big.Int) error
}

// Authorizer decides who may tune parameters and suspend the engine.
type Authorizer interface {
	IsAdmin(addr thor.Address) (bool, error)
}

var slotControl = thor.BytesToBytes32([]byte("staker-control"))

// control is the operator switchboard.
type control struct {
	Paused       bool
	BreakerUntil uint64 // circuit breaker is active while now < BreakerUntil
}

func (c *control) breakerActive(now uint64) bool {
	return now < c.BreakerUntil
}

// check rejects reward affecting submissions while suspended.
func (c *control) check(now uint64) error {
	if c.Paused {
		return reverts.ErrPaused
	}
	if c.breakerActive(now) {
		return reverts.ErrCircuitBreakerActive.Withf("until %d", c.BreakerUntil)
	}
	return nil
}

// Option configures a Staker.
type Option func(*Staker)

// WithEmitter publishes committed events to e.
func WithEmitter(e events.Emitter) Option {
	return func(s *Staker) {
		s.emitter = e
	}
}

// Staker is the staking engine. Every public method is one atomic
// operation. Operations are serialized and never nest. Reads see committed
// state only and run alongside operations.
type Staker struct {
	cfg     Config
	tiers   *tier.Set
	state   *state.State
	ledger  ValueLedger
	auth    Authorizer
	emitter events.Emitter

	mu       sync.Mutex   // held for the whole of an operation
	inCall   atomic.Bool  // set while an operation has called out of the engine
	commitMu sync.RWMutex // excludes reads while a commit reaches the store
}

// New creates an engine over state, moving value through ledger.
func New(cfg Config, st *state.State, ledger ValueLedger, auth Authorizer, opts ...Option) (*Staker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tiers, err := tier.NewSet(cfg.Tiers)
	if err != nil {
		return nil, reverts.ErrInvalidConfig.Withf("%v", err)
	}
	s := &Staker{
		cfg:     cfg,
		tiers:   tiers,
		state:   st,
		ledger:  ledger,
		auth:    auth,
		emitter: events.Nop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the engine configuration.
func (s *Staker) Config() Config {
	return s.cfg
}

// services are the ledgers of one operation, sharing its gas charger.
type services struct {
	sctx     *solidity.Context
	charger  *gascharger.Charger
	accrual  *accrual.Service
	stakes   *stakes.Service
	referral *referral.Service
	pool     *pool.Service
	params   *params.Params
	control  *solidity.Raw[*control]
	events   *events.Buffer
}

func (s *Staker) newServices(st *state.State, gasLimit uint64) *services {
	charger := gascharger.New(gasLimit)
	sctx := solidity.NewContext(s.cfg.Address, st, charger)
	accrualService := accrual.New(sctx)
	return &services{
		sctx:     sctx,
		charger:  charger,
		accrual:  accrualService,
		stakes:   stakes.New(sctx, accrualService, s.cfg.MaxStakesPerAccount),
		referral: referral.New(sctx, s.cfg.ClaimPeriod),
		pool:     pool.New(sctx),
		params:   params.New(sctx),
		control:  solidity.NewRaw[*control](sctx, slotControl),
		events:   &events.Buffer{},
	}
}

func (svc *services) getControl() (*control, error) {
	c, err := svc.control.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get control")
	}
	return c, nil
}

// write runs fn as one atomic operation. Any error reverts every write made
// by fn, including writes of a ledger sharing the state, and drops its events.
// Concurrent operations wait for each other. An operation entered from a
// callout of another fails with ErrReentrant.
func (s *Staker) write(op string, fn func(svc *services) error) error {
	if s.inCall.Load() {
		err := reverts.ErrReentrant.Withf("%s", op)
		observe(op, nil, err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug("operation", "op", op)
	svc := s.newServices(s.state, s.cfg.OperationGasLimit)
	checkpoint := s.state.NewCheckpoint()

	err := fn(svc)
	if err == nil {
		if err = s.commit(); err != nil {
			err = errors.Wrap(err, "commit")
		}
	}
	if err != nil {
		s.state.RevertTo(checkpoint)
		svc.events.Discard()
		s.logFailure(op, svc.charger, err)
		observe(op, svc.charger, err)
		return err
	}

	logger.Info("operation committed", "op", op, "gas", svc.charger.TotalGas(), "events", svc.events.Len())
	s.callout(func() error {
		svc.events.Flush(s.emitter)
		return nil
	})
	observe(op, svc.charger, nil)
	s.publishGauges()
	return nil
}

func (s *Staker) commit() error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.state.Commit()
}

// read runs fn over committed state, without metering and without writing.
func (s *Staker) read(fn func(svc *services) error) error {
	s.commitMu.RLock()
	defer s.commitMu.RUnlock()
	return fn(s.newServices(s.state.Committed(), 0))
}

// callout runs fn, which leaves the engine. Operations entered meanwhile
// are re-entry.
func (s *Staker) callout(fn func() error) error {
	s.inCall.Store(true)
	defer s.inCall.Store(false)
	return fn()
}

func (s *Staker) logFailure(op string, charger *gascharger.Charger, err error) {
	var rev *reverts.ErrRevert
	switch {
	case errors.As(err, &rev) && rev.Is(reverts.ErrInvariant):
		logger.Error("invariant violation", "op", op, "err", err)
	case errors.As(err, &rev) && rev.Is(reverts.ErrOutOfGas):
		logger.Info("operation out of gas", "op", op, "gas", charger.Breakdown())
	default:
		logger.Info("operation reverted", "op", op, "err", err)
	}
}

// rates returns the effective annual rate of every tier.
func (s *Staker) rates(svc *services) ([]accrual.Rate, error) {
	all := s.tiers.All()
	rates := make([]accrual.Rate, 0, len(all))
	for _, t := range all {
		rate, err := s.rate(svc, t)
		if err != nil {
			return nil, err
		}
		rates = append(rates, accrual.Rate{Tier: t.ID, RateBP: rate})
	}
	return rates, nil
}

// rate returns the tier rate, overridden by governance when set.
func (s *Staker) rate(svc *services, t tier.Tier) (uint64, error) {
	rate, ok, err := svc.params.TierRate(t.ID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return t.RateBP, nil
	}
	return rate, nil
}

// accrue brings every tier accumulator current to now, emitting no more
// than the reward liquidity not yet promised.
func (s *Staker) accrue(svc *services, now uint64) error {
	ps, err := svc.pool.Get()
	if err != nil {
		return err
	}
	if now <= ps.LastAccrualUpdateTime {
		return nil
	}
	rates, err := s.rates(svc)
	if err != nil {
		return err
	}
	available := ps.Available()
	res, err := svc.accrual.Update(rates, now-ps.LastAccrualUpdateTime, available)
	if err != nil {
		return err
	}
	if res.Distributed.Sign() > 0 {
		if err := svc.pool.AddLiability(res.Distributed); err != nil {
			return err
		}
	}
	if res.Scaled {
		logger.Warn("emission scaled to liquidity", "naive", res.Naive, "distributed", res.Distributed, "available", available)
		svc.events.Add(events.EmissionScaled{
			Naive:       res.Naive,
			Distributed: res.Distributed,
			Available:   available,
			Time:        now,
		})
	}
	return svc.pool.SetLastAccrualUpdateTime(now)
}

// transferError is a failure reported by the value ledger itself.
type transferError struct {
	cause error
}

func (e *transferError) Error() string { return "transfer: " + e.cause.Error() }
func (e *transferError) Unwrap() error { return e.cause }

func isTransferError(err error) bool {
	var te *transferError
	return errors.As(err, &te)
}

func (s *Staker) transfer(svc *services, from, to thor.Address, amount *big.Int) error {
	if err := svc.sctx.UseGas(thor.TransferGas); err != nil {
		return err
	}
	if err := s.callout(func() error { return s.ledger.Transfer(from, to, amount) }); err != nil {
		return &transferError{err}
	}
	return nil
}

// pull moves value the owner approved to the engine.
func (s *Staker) pull(svc *services, from, to thor.Address, amount *big.Int) error {
	if err := svc.sctx.UseGas(thor.TransferGas); err != nil {
		return err
	}
	if err := s.callout(func() error {
		return s.ledger.TransferFrom(s.cfg.Address, from, to, amount)
	}); err != nil {
		return &transferError{err}
	}
	return nil
}

func (s *Staker) balanceOf(svc *services, addr thor.Address) (*big.Int, error) {
	if err := svc.sctx.UseGas(thor.TransferGas); err != nil {
		return nil, err
	}
	var bal *big.Int
	err := s.callout(func() (err error) {
		bal, err = s.ledger.BalanceOf(addr)
		return
	})
	if err != nil {
		return nil, errors.Wrapf(err, "balance of %v", addr)
	}
	return bal, nil
}

// payReward pays up to amount of promised reward from the reward pool. A
// ledger failure is not fatal: the payout is rolled back and reported as
// unpaid with a reason.
func (s *Staker) payReward(svc *services, to thor.Address, amount *big.Int) (paid *big.Int, reason string, err error) {
	ps, err := svc.pool.Get()
	if err != nil {
		return nil, "", err
	}
	paid = new(big.Int).Set(amount)
	if paid.Cmp(ps.RewardCustody) > 0 {
		paid.Set(ps.RewardCustody)
		reason = "insufficient liquidity"
	}
	if paid.Sign() == 0 {
		return paid, reason, nil
	}

	checkpoint := s.state.NewCheckpoint()
	if err := svc.pool.PayReward(paid); err != nil {
		return nil, "", err
	}
	if err := s.transfer(svc, s.cfg.RewardPool, to, paid); err != nil {
		if !isTransferError(err) {
			return nil, "", err
		}
		s.state.RevertTo(checkpoint)
		logger.Warn("reward transfer failed", "to", to, "amount", paid, "err", err)
		return new(big.Int), "transfer failed", nil
	}
	return paid, reason, nil
}

// requireAdmin fails unless caller is authorized.
func (s *Staker) requireAdmin(svc *services, caller thor.Address) error {
	if err := svc.sctx.UseGas(thor.SloadGas); err != nil {
		return err
	}
	var ok bool
	err := s.callout(func() (err error) {
		ok, err = s.auth.IsAdmin(caller)
		return
	})
	if err != nil {
		return errors.Wrap(err, "authorize")
	}
	if !ok {
		return reverts.ErrUnauthorized.Withf("%v", caller)
	}
	return nil
}

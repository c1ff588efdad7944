// File: internal/agent/explorer.go
// Description: The exploration agent. A value-based policy over UI actions
// with epsilon-greedy selection, replay-buffer storage, and periodic offline
// updates against a delayed target estimator.

package agent

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
)

// Explorer learns which UI actions are worth taking in which states.
type Explorer struct {
	cfg    config.AgentConfig
	online *Network
	target *Network
	replay *ReplayBuffer

	epsilon float64
	rng     *rand.Rand
	logger  *zap.Logger
}

// NewExplorer builds an exploration agent from its hyperparameters. The rng
// is injected so tests can be deterministic.
func NewExplorer(cfg config.AgentConfig, rng *rand.Rand, logger *zap.Logger) *Explorer {
	e := &Explorer{
		cfg:     cfg,
		online:  NewNetwork(cfg.StateSize, cfg.HiddenSize, cfg.ActionSize, cfg.LearningRate, rng),
		target:  NewNetwork(cfg.StateSize, cfg.HiddenSize, cfg.ActionSize, cfg.LearningRate, rng),
		replay:  NewReplayBuffer(cfg.ReplayCapacity),
		epsilon: cfg.EpsilonStart,
		rng:     rng,
		logger:  logger.Named("explorer"),
	}
	// Start the delayed estimator identical to the online one.
	e.target.CopyFrom(e.online)
	return e
}

// Epsilon returns the current exploration rate.
func (e *Explorer) Epsilon() float64 { return e.epsilon }

// SetEpsilon overrides the exploration rate; used by tests and the demo to
// force pure exploitation or pure exploration.
func (e *Explorer) SetEpsilon(eps float64) { e.epsilon = eps }

// SelectAction picks one of the available actions: uniformly at random with
// probability epsilon, otherwise the action whose type scores highest under
// the online value estimator (ties break by candidate order).
//
// Callers must guarantee available is non-empty; the orchestrator does this by
// ending the episode when no actions remain.
func (e *Explorer) SelectAction(state []float64, available []schemas.Action) schemas.Action {
	if e.rng.Float64() < e.epsilon {
		return available[e.rng.Intn(len(available))]
	}

	values := e.online.Forward(state)
	best := 0
	bestValue := e.actionValue(values, available[0].Type)
	for i, a := range available[1:] {
		if v := e.actionValue(values, a.Type); v > bestValue {
			bestValue = v
			best = i + 1
		}
	}
	return available[best]
}

func (e *Explorer) actionValue(values []float64, t schemas.ActionType) float64 {
	idx := schemas.ActionTypeIndex(t)
	if idx < 0 || idx >= len(values) {
		return 0
	}
	return values[idx]
}

// Record stores one transition in the replay buffer.
func (e *Explorer) Record(exp Experience) {
	e.replay.Add(exp)
}

// ReplayLen reports how many transitions are buffered.
func (e *Explorer) ReplayLen() int { return e.replay.Len() }

// Learn samples a uniform batch and fits the online estimator toward
// bootstrap targets from the delayed estimator. It is a silent no-op when the
// buffer holds fewer than one batch. Returns whether an update ran.
func (e *Explorer) Learn() bool {
	if e.replay.Len() < e.cfg.BatchSize {
		return false
	}

	batch := e.replay.Sample(e.rng, e.cfg.BatchSize)
	for _, exp := range batch {
		idx := schemas.ActionTypeIndex(exp.Action.Type)
		if idx < 0 {
			continue
		}
		target := exp.Reward
		if !exp.Done {
			// Bootstrap from the delayed estimator's best next-action value.
			next := e.target.Forward(exp.NextState)
			target += e.cfg.DiscountFactor * maxOf(next)
		}
		e.online.TrainTargetAt(exp.State, idx, target)
	}

	if e.epsilon > e.cfg.EpsilonMin {
		e.epsilon *= e.cfg.EpsilonDecay
		if e.epsilon < e.cfg.EpsilonMin {
			e.epsilon = e.cfg.EpsilonMin
		}
	}

	e.logger.Debug("Replay update applied",
		zap.Int("batch_size", e.cfg.BatchSize),
		zap.Float64("epsilon", e.epsilon))
	return true
}

// SyncTarget hard-copies the online estimator's parameters into the delayed
// target estimator. The target copy is only ever overwritten wholesale.
func (e *Explorer) SyncTarget() {
	e.target.CopyFrom(e.online)
	e.logger.Debug("Target estimator synced")
}

// Snapshot captures the online estimator's parameters.
func (e *Explorer) Snapshot() Params { return e.online.Snapshot() }

// Restore loads parameters into both the online and target estimators.
func (e *Explorer) Restore(p Params) error {
	if err := e.online.Restore(p); err != nil {
		return err
	}
	e.target.CopyFrom(e.online)
	return nil
}

// AvailableActions builds the action set for a page: an interaction per
// interactable element plus the page-level navigation actions.
func AvailableActions(page schemas.PageState) []schemas.Action {
	var actions []schemas.Action
	for i := range page.Elements {
		el := &page.Elements[i]
		if !el.Interactable {
			continue
		}
		switch el.Type {
		case schemas.ElementButton, schemas.ElementLink, schemas.ElementCheckbox, schemas.ElementRadio:
			actions = append(actions, schemas.Action{Type: schemas.ActionClick, Target: el})
		case schemas.ElementInput, schemas.ElementTextarea:
			actions = append(actions, schemas.Action{Type: schemas.ActionInput, Target: el, Value: "test_input"})
		case schemas.ElementSelect:
			actions = append(actions, schemas.Action{Type: schemas.ActionSelect, Target: el})
		}
	}
	actions = append(actions,
		schemas.Action{Type: schemas.ActionScrollUp},
		schemas.Action{Type: schemas.ActionScrollDown},
		schemas.Action{Type: schemas.ActionWait},
		schemas.Action{Type: schemas.ActionNavigateBack},
		schemas.Action{Type: schemas.ActionRefresh},
	)
	return actions
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

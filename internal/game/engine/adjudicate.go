package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
)

// move is one action value resolved against the current world state.
type move struct {
	source  string
	target  *ecs.Entity
	message string
	prop    files.PropFile
	from    string
	to      string
	amount  int
}

// rule adjudicates one action kind. validate resolves a value without
// touching state, commit applies it, emit queues the resulting lines.
// An error from validate or commit rejects that value only.
type rule struct {
	filter   func(g *Game, e *ecs.Entity) bool
	once     bool
	validate func(g *Game, e *ecs.Entity, a action.Action, value string) (move, error)
	commit   func(g *Game, e *ecs.Entity, m *move) error
	emit     func(g *Game, e *ecs.Entity, m move)
	rejected func(g *Game, e *ecs.Entity, value string)
}

// adjudicate consumes the action of kind k attached to e.
func (g *Game) adjudicate(e *ecs.Entity, k action.Kind) {
	r, ok := rules[k]
	if !ok {
		return
	}
	a, ok := action.Of(e, k)
	if !ok {
		return
	}
	e.Remove(k.ComponentType())
	values := a.Values
	if r.once {
		values = []string{""}
	}
	for _, v := range values {
		m, err := r.validate(g, e, a, v)
		if err == nil && r.commit != nil {
			err = r.commit(g, e, &m)
		}
		if err != nil {
			g.reject(e, k, v, err)
			if r.rejected != nil {
				r.rejected(g, e, v)
			}
			continue
		}
		if r.emit != nil {
			r.emit(g, e, m)
		}
	}
}

// reject records a semantically invalid action value. Only players are told.
func (g *Game) reject(e *ecs.Entity, k action.Kind, value string, err error) {
	g.logger.Named("adjudicate").Debug("semantic error",
		zap.String("entity", e.Name()),
		zap.String("action", string(k)),
		zap.String("value", value),
		zap.Error(err),
	)
	g.tell(e.Name(), fmt.Sprintf("%s failed: %v", k, err))
}

// ruleProcessor is the reactive processor of one action kind.
type ruleProcessor struct {
	g    *Game
	kind action.Kind
	rule rule
}

func newRuleProcessor(g *Game, k action.Kind) *ruleProcessor {
	return &ruleProcessor{g: g, kind: k, rule: rules[k]}
}

func (p *ruleProcessor) Name() string { return string(p.kind) }

func (p *ruleProcessor) Trigger() ecs.ComponentType { return p.kind.ComponentType() }

func (p *ruleProcessor) Filter(e *ecs.Entity) bool {
	return p.rule.filter == nil || p.rule.filter(p.g, e)
}

func (p *ruleProcessor) React(_ context.Context, entities []*ecs.Entity) {
	for _, e := range entities {
		p.g.adjudicate(e, p.kind)
	}
}

package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one planning request in a Gather fan-out.
type Task struct {
	// Agent is the registered agent name.
	Agent string
	// Prompt is the human input for this request.
	Prompt string

	canned    string
	hasCanned bool

	// Response is the agent output after Gather; empty when the request failed.
	Response string
	// Err is the transport failure, if any.
	Err error
	// TimedOut reports that the request deadline expired.
	TimedOut bool
}

// NewTask returns a task asking agent with prompt.
func NewTask(agentName, prompt string) *Task {
	return &Task{Agent: agentName, Prompt: prompt}
}

// UseCanned makes Gather answer the task with response instead of calling the endpoint.
func (t *Task) UseCanned(response string) {
	t.canned = response
	t.hasCanned = true
}

// OK reports whether the task produced a response.
func (t *Task) OK() bool {
	return t.Err == nil && !t.TimedOut
}

// Gather runs every task concurrently against a snapshot of each agent's
// history, then appends (human prompt, ai response) to the history of every
// successful task in slice order. Failed or timed-out tasks leave history
// unchanged.
//
// Postcondition: Every task has Response, Err, and TimedOut set.
func (r *Registry) Gather(ctx context.Context, tasks []*Task) {
	type job struct {
		task *Task
		t    Transport
		req  Request
	}
	jobs := make([]job, 0, len(tasks))
	r.mu.RLock()
	for _, task := range tasks {
		a, ok := r.agents[task.Agent]
		if !ok {
			task.Err = fmt.Errorf("%w: %q", ErrAgentNotFound, task.Agent)
			continue
		}
		jobs = append(jobs, job{
			task: task,
			t:    a.transport,
			req:  Request{Input: task.Prompt, ChatHistory: a.history.Messages()},
		})
	}
	r.mu.RUnlock()

	var g errgroup.Group
	for _, j := range jobs {
		if j.task.hasCanned {
			j.task.Response = j.task.canned
			continue
		}
		g.Go(func() error {
			rctx, cancel := withOptionalTimeout(ctx, r.opts.RequestTimeout)
			defer cancel()
			res, err := j.t.Invoke(rctx, j.req)
			switch {
			case err != nil && errors.Is(rctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
				j.task.TimedOut = true
			case err != nil:
				j.task.Err = err
			default:
				j.task.Response = res.Output
			}
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range tasks {
		switch {
		case task.TimedOut:
			r.logger.Warn("agent request timed out", zap.String("agent", task.Agent))
			continue
		case task.Err != nil:
			r.logger.Warn("agent request failed", zap.String("agent", task.Agent), zap.Error(task.Err))
			continue
		}
		a, ok := r.agents[task.Agent]
		if !ok {
			continue
		}
		a.history.Append(
			Message{Role: RoleHuman, Content: task.Prompt},
			Message{Role: RoleAI, Content: task.Response},
		)
	}
}

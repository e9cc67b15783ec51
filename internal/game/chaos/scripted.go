package chaos

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Corruption rewrites one agent's chat history at the start of a planning phase.
type Corruption struct {
	// Round is the round the corruption applies in; 0 applies every round.
	Round int `yaml:"round"`
	// Agent names the chat history to rewrite.
	Agent string `yaml:"agent"`
	// Exclude drops messages containing any of these tags.
	Exclude []string `yaml:"exclude"`
	// Replace substitutes literal substrings.
	Replace map[string]string `yaml:"replace"`
	// DropLast removes the last human/ai exchange.
	DropLast bool `yaml:"drop_last"`
}

// Script is the YAML form of a Scripted system.
type Script struct {
	// StageResponses are consumed in order per stage, one per planning request.
	StageResponses map[string][]string `yaml:"stage_responses"`
	// ActorResponses are consumed in order per actor, one per planning request.
	ActorResponses map[string][]string `yaml:"actor_responses"`
	// Corruptions are applied before matching planning phases.
	Corruptions []Corruption `yaml:"corruptions"`
	// MemoryFallback seeds a system message when an agent's history was unreadable.
	MemoryFallback map[string]string `yaml:"memory_fallback"`
}

// Scripted is a deterministic System that answers planning requests from
// queues of canned responses and corrupts histories on schedule. It records
// every hook invocation.
type Scripted struct {
	mu     sync.Mutex
	stage  map[string][]string
	actor  map[string][]string
	script Script
	calls  []string
}

var (
	_ System        = (*Scripted)(nil)
	_ RoundObserver = (*Scripted)(nil)
)

// NewScripted returns a Scripted system driven by s.
func NewScripted(s Script) *Scripted {
	c := &Scripted{
		stage:  make(map[string][]string),
		actor:  make(map[string][]string),
		script: s,
	}
	for k, v := range s.StageResponses {
		c.stage[k] = append([]string(nil), v...)
	}
	for k, v := range s.ActorResponses {
		c.actor[k] = append([]string(nil), v...)
	}
	return c
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parsing chaos script: %w", err)
	}
	for i, c := range s.Corruptions {
		if c.Agent == "" {
			return Script{}, fmt.Errorf("parsing chaos script: corruption %d has no agent", i)
		}
	}
	return s, nil
}

// LoadScript reads and parses a YAML script from path.
func LoadScript(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chaos script %q: %w", path, err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, err
	}
	return NewScripted(s), nil
}

// QueueStage appends canned responses for stage.
func (c *Scripted) QueueStage(stage string, responses ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage[stage] = append(c.stage[stage], responses...)
}

// QueueActor appends canned responses for actor.
func (c *Scripted) QueueActor(actor string, responses ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actor[actor] = append(c.actor[actor], responses...)
}

// AddCorruption schedules a history corruption.
func (c *Scripted) AddCorruption(cr Corruption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script.Corruptions = append(c.script.Corruptions, cr)
}

// Calls returns the recorded hook invocations, e.g. "actor_planning:3".
func (c *Scripted) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Scripted) record(format string, args ...any) {
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *Scripted) OnPreCreateWorld(h Host) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("pre_create_world")
}

func (c *Scripted) OnPostCreateWorld(h Host) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("post_create_world")
}

func (c *Scripted) OnReadMemoryFailed(h Host, agentName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("read_memory_failed:%s", agentName)
	if note, ok := c.script.MemoryFallback[agentName]; ok {
		_ = h.Agents().AppendSystem(agentName, note)
	}
}

func (c *Scripted) OnStagePlanning(h Host, stages []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("stage_planning:%d", h.Round())
	c.corrupt(h, stages)
}

func (c *Scripted) OnActorPlanning(h Host, actors []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("actor_planning:%d", h.Round())
	c.corrupt(h, actors)
}

func (c *Scripted) HackStagePlanning(h Host, stage, prompt string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pop(c.stage, stage)
}

func (c *Scripted) HackActorPlanning(h Host, actor, prompt string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pop(c.actor, actor)
}

// OnRoundEnd implements RoundObserver.
func (c *Scripted) OnRoundEnd(h Host) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("round_end:%d", h.Round())
}

// corrupt applies the corruptions scheduled for this round to agents in names.
// Caller holds mu.
func (c *Scripted) corrupt(h Host, names []string) {
	in := make(map[string]bool, len(names))
	for _, n := range names {
		in[n] = true
	}
	for _, cr := range c.script.Corruptions {
		if !in[cr.Agent] || (cr.Round != 0 && cr.Round != h.Round()) {
			continue
		}
		reg := h.Agents()
		if cr.DropLast {
			reg.RemoveLastConversation(cr.Agent)
		}
		if len(cr.Exclude) > 0 {
			reg.ExcludeChatHistory(cr.Agent, cr.Exclude)
		}
		if len(cr.Replace) > 0 {
			reg.ReplaceChatHistory(cr.Agent, cr.Replace)
		}
	}
}

func pop(queues map[string][]string, name string) (string, bool) {
	q := queues[name]
	if len(q) == 0 {
		return "", false
	}
	queues[name] = q[1:]
	return q[0], true
}

// Remaining returns the names with unconsumed canned responses, sorted.
func (c *Scripted) Remaining() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range []map[string][]string{c.stage, c.actor} {
		for k, v := range m {
			if len(v) > 0 {
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

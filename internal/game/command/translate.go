package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/agentrpg/internal/game/action"
)

var (
	// ErrUnknownCommand is returned for lines that name no registered command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned when a command's arguments are malformed.
	ErrUsage = errors.New("bad command arguments")
)

// Control verbs that do not become actions.
const (
	ControlNone = ""
	ControlQuit = "quit"
	ControlHelp = "help"
)

// Intent is a translated player command: an action to attach, or a control verb.
type Intent struct {
	// Action is attached to Target when Control is empty.
	Action action.Action
	// Target is the entity the action is attached to; usually the player's actor.
	Target string
	// Control is a non-action verb.
	Control string
}

// Translate turns a command line into an intent for actor.
//
// Postcondition: Returns ErrUnknownCommand or ErrUsage on rejection; no state is touched.
func (r *Registry) Translate(line, actor string) (Intent, error) {
	res := Parse(line)
	if res.Command == "" {
		return Intent{}, fmt.Errorf("%w: %q", ErrUnknownCommand, strings.TrimSpace(line))
	}
	cmd, ok := r.Resolve(res.Command)
	if !ok {
		return Intent{}, fmt.Errorf("%w: %s%s", ErrUnknownCommand, Prefix, res.Command)
	}

	usage := func() (Intent, error) {
		return Intent{}, fmt.Errorf("%w: usage %s", ErrUsage, cmd.Usage)
	}
	self := func(k action.Kind, values ...string) (Intent, error) {
		return Intent{Action: action.New(k, actor, values...), Target: actor}, nil
	}

	raw := res.RawArgs
	switch cmd.Handler {
	case HandlerQuit:
		return Intent{Control: ControlQuit}, nil
	case HandlerHelp:
		return Intent{Control: ControlHelp}, nil
	case HandlerLook:
		return self(action.PerceptionAction)
	case HandlerStatus:
		return self(action.CheckStatusAction)
	case HandlerWait:
		if raw == "" {
			return self(action.TurnAction)
		}
		return self(action.TurnAction, raw)
	}

	if raw == "" {
		return usage()
	}
	switch cmd.Handler {
	case HandlerGoTo:
		return self(action.GoToAction, raw)
	case HandlerAnnounce:
		return self(action.AnnounceAction, raw)
	case HandlerThink:
		return self(action.MindVoiceAction, raw)
	case HandlerPickUp:
		return self(action.PickUpPropAction, raw)
	case HandlerEquip:
		return self(action.EquipPropAction, raw)
	case HandlerSpeak, HandlerWhisper:
		if _, _, ok := action.ParseTargetMessage(raw); !ok {
			return usage()
		}
		k := action.SpeakAction
		if cmd.Handler == HandlerWhisper {
			k = action.WhisperAction
		}
		return self(k, raw)
	case HandlerGive, HandlerSteal, HandlerSkill:
		target, item, ok := parseTargetSlash(raw)
		if !ok {
			return usage()
		}
		k := map[string]action.Kind{
			HandlerGive:  action.GivePropAction,
			HandlerSteal: action.StealPropAction,
			HandlerSkill: action.SkillAction,
		}[cmd.Handler]
		return self(k, action.FormatTargetMessage(target, item))
	case HandlerKill:
		return Intent{Action: action.New(action.DeadAction, actor), Target: raw}, nil
	}
	return Intent{}, fmt.Errorf("%w: %s%s has no translator", ErrUnknownCommand, Prefix, cmd.Name)
}

// parseTargetSlash splits "@target/item".
func parseTargetSlash(s string) (string, string, bool) {
	if !strings.HasPrefix(s, "@") {
		return "", "", false
	}
	idx := strings.Index(s, "/")
	if idx < 0 {
		return "", "", false
	}
	target := strings.TrimSpace(s[1:idx])
	item := strings.TrimSpace(s[idx+1:])
	if target == "" || item == "" {
		return "", "", false
	}
	return target, item, true
}

// HelpText renders the command list grouped by category.
func (r *Registry) HelpText() string {
	var b strings.Builder
	byCat := r.CommandsByCategory()
	for _, cat := range []string{CategoryMovement, CategoryCommunication, CategoryInteraction, CategoryCombat, CategorySystem} {
		cmds := byCat[cat]
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", cat)
		for _, c := range cmds {
			fmt.Fprintf(&b, "  %-28s %s\n", c.Usage, c.Help)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

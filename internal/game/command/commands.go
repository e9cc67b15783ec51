// Package command provides the player command registry, the slash-command
// parser, and the translation of commands into action components.
package command

// Categories for organizing commands.
const (
	CategoryMovement      = "movement"
	CategoryInteraction   = "interaction"
	CategoryCombat        = "combat"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
)

// Handler identifiers mapping commands to translators.
const (
	HandlerGoTo     = "goto"
	HandlerSpeak    = "speak"
	HandlerWhisper  = "whisper"
	HandlerAnnounce = "announce"
	HandlerThink    = "think"
	HandlerPickUp   = "pickup"
	HandlerGive     = "give"
	HandlerSteal    = "steal"
	HandlerEquip    = "equip"
	HandlerSkill    = "skill"
	HandlerKill     = "kill"
	HandlerLook     = "look"
	HandlerStatus   = "status"
	HandlerWait     = "wait"
	HandlerQuit     = "quit"
	HandlerHelp     = "help"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name, without the leading slash.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form.
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command.
	Category string
	// Handler selects the translator.
	Handler string
}

// BuiltinCommands returns every player command.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "goto", Aliases: []string{"go"}, Usage: "/goto <stage>", Help: "Move to a connected stage", Category: CategoryMovement, Handler: HandlerGoTo},

		{Name: "speak", Aliases: []string{"say"}, Usage: "/speak @actor>message", Help: "Speak to an actor; others in the stage overhear", Category: CategoryCommunication, Handler: HandlerSpeak},
		{Name: "whisper", Aliases: []string{"w"}, Usage: "/whisper @actor>message", Help: "Whisper to one actor", Category: CategoryCommunication, Handler: HandlerWhisper},
		{Name: "announce", Aliases: []string{"shout"}, Usage: "/announce message", Help: "Tell everyone in the stage", Category: CategoryCommunication, Handler: HandlerAnnounce},
		{Name: "think", Aliases: []string{"mind"}, Usage: "/think message", Help: "Note a private thought", Category: CategoryCommunication, Handler: HandlerThink},

		{Name: "pickup", Aliases: []string{"get", "take"}, Usage: "/pickup <prop>", Help: "Pick up a prop lying in the stage", Category: CategoryInteraction, Handler: HandlerPickUp},
		{Name: "give", Aliases: nil, Usage: "/give @actor/<prop>", Help: "Give a prop to an actor", Category: CategoryInteraction, Handler: HandlerGive},
		{Name: "steal", Aliases: nil, Usage: "/steal @actor/<prop>", Help: "Steal a prop from an actor", Category: CategoryInteraction, Handler: HandlerSteal},
		{Name: "equip", Aliases: []string{"eq"}, Usage: "/equip <prop>", Help: "Equip a weapon or clothes you own", Category: CategoryInteraction, Handler: HandlerEquip},
		{Name: "look", Aliases: []string{"l"}, Usage: "/look", Help: "Look around the stage", Category: CategoryInteraction, Handler: HandlerLook},
		{Name: "status", Aliases: []string{"st"}, Usage: "/status", Help: "Check your own condition", Category: CategoryInteraction, Handler: HandlerStatus},

		{Name: "skill", Aliases: []string{"use"}, Usage: "/skill @actor/<skill>", Help: "Use a skill on an actor", Category: CategoryCombat, Handler: HandlerSkill},
		{Name: "kill", Aliases: nil, Usage: "/kill <actor>", Help: "Kill an actor outright", Category: CategoryCombat, Handler: HandlerKill},

		{Name: "wait", Aliases: []string{"pass"}, Usage: "/wait [note]", Help: "Let the turn pass", Category: CategorySystem, Handler: HandlerWait},
		{Name: "quit", Aliases: []string{"exit"}, Usage: "/quit", Help: "Leave the game", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Usage: "/help", Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}

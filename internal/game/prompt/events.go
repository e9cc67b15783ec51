package prompt

import "fmt"

// Speak is the line delivered for a spoken message.
func Speak(speaker, target, message string) string {
	return fmt.Sprintf("%s %s said to %s: %q", TagEvent, speaker, target, message)
}

// Whisper is the line delivered to the whisper's target.
func Whisper(speaker, target, message string) string {
	return fmt.Sprintf("%s %s whispered to %s: %q", TagEvent, speaker, target, message)
}

// Announce is the line delivered for an announcement.
func Announce(speaker, where, message string) string {
	return fmt.Sprintf("%s %s announced in %s: %q", TagEvent, speaker, where, message)
}

// MindVoice is the line an actor records for its own thought.
func MindVoice(message string) string {
	return fmt.Sprintf("%s You think to yourself: %q", TagSelf, message)
}

// Leave is delivered to the occupants of the stage an actor left.
func Leave(actor, from, to string) string {
	return fmt.Sprintf("%s %s left %s for %s.", TagEvent, actor, from, to)
}

// Enter is delivered to the occupants of the stage an actor entered.
func Enter(actor, to, from string) string {
	return fmt.Sprintf("%s %s entered %s from %s.", TagEvent, actor, to, from)
}

// Arrived is the moving actor's own record of a stage transition.
func Arrived(from, to, perception string) string {
	return fmt.Sprintf("%s You left %s and arrived in %s.\n%s", TagSelf, from, to, perception)
}

// GoToFailed tells an actor its move was refused.
func GoToFailed(stage, target string) string {
	return fmt.Sprintf("%s You cannot go from %s to %s.", TagSelf, stage, target)
}

// PickUp is delivered to the stage when an actor picks up a prop.
func PickUp(actor, prop, stage string) string {
	return fmt.Sprintf("%s %s picked up %s in %s.", TagEvent, actor, prop, stage)
}

// Give is delivered to both parties of a gift.
func Give(giver, receiver, prop string) string {
	return fmt.Sprintf("%s %s gave %s to %s.", TagEvent, giver, prop, receiver)
}

// Steal is delivered to the thief; the victim learns on its next perception.
func Steal(thief, victim, prop string) string {
	return fmt.Sprintf("%s %s stole %s from %s.", TagEvent, thief, prop, victim)
}

// Equip is the actor's own record of equipping a prop.
func Equip(actor, prop, slot string) string {
	return fmt.Sprintf("%s %s equipped %s as %s.", TagSelf, actor, prop, slot)
}

// Skill is delivered to the stage when an actor uses a skill on a target.
func Skill(actor, skill, target, message string) string {
	if message == "" {
		return fmt.Sprintf("%s %s used %s on %s.", TagEvent, actor, skill, target)
	}
	return fmt.Sprintf("%s %s used %s on %s: %q", TagEvent, actor, skill, target, message)
}

// Damage is delivered to the stage when damage lands.
func Damage(attacker, target string, amount, hp, maxHP int) string {
	return fmt.Sprintf("%s %s dealt %d damage to %s (%d/%d).", TagEvent, attacker, amount, target, hp, maxHP)
}

// Dead is delivered to the stage when an actor dies.
func Dead(actor string) string {
	return fmt.Sprintf("%s %s is dead.", TagEvent, actor)
}

// Loot is delivered to the killer for each looted prop.
func Loot(killer, victim, prop string) string {
	return fmt.Sprintf("%s %s took %s from the body of %s.", TagEvent, killer, prop, victim)
}

// Spawned is delivered to a stage's occupants when a spawner produces an actor.
func Spawned(actor, stage string) string {
	return fmt.Sprintf("%s %s appeared in %s.", TagEvent, actor, stage)
}

// Turn is an actor's own record of passing its turn.
func Turn(note string) string {
	if note == "" {
		return fmt.Sprintf("%s You wait.", TagSelf)
	}
	return fmt.Sprintf("%s You wait: %s", TagSelf, note)
}

// Selected is an actor's own record of queueing skills.
func Selected(skills []string) string {
	return fmt.Sprintf("%s You ready %v for later use.", TagSelf, skills)
}

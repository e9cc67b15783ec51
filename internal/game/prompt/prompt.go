// Package prompt renders planning prompts and event lines. Every function is a
// pure projection of its arguments: equal inputs yield equal text.
package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Tags prefixed to history messages so they can be located by content.
const (
	TagKickOff   = "<%kickoff>"
	TagPlan      = "<%plan>"
	TagEvent     = "<%event>"
	TagSelf      = "<%self>"
	TagPerceived = "<%perception>"
)

// ActorView is how one actor appears to another.
type ActorView struct {
	Name          string
	Appearance    string
	HealthPercent int
}

// PropView is a prop as listed in a prompt.
type PropView struct {
	Name        string
	Kind        string
	Count       int
	Description string
}

// Sheet is an actor's view of itself.
type Sheet struct {
	Name            string
	HP              int
	MaxHP           int
	Damage          int
	Defense         int
	Weapon          string
	Clothes         string
	Inventory       []PropView
	SkillCandidates []string
}

// ActorPlanInput is everything an actor's planning prompt shows.
type ActorPlanInput struct {
	Round     int
	Stage     string
	Narration string
	Outbound  []string
	Props     []PropView
	Others    []ActorView
	Self      Sheet
	Permitted []string
}

// StagePlanInput is everything a stage's planning prompt shows.
type StagePlanInput struct {
	Round     int
	Stage     string
	Narration string
	Actors    []ActorView
	Props     []PropView
	Permitted []string
}

// WorldPlanInput is everything a world system's planning prompt shows.
type WorldPlanInput struct {
	Round     int
	Name      string
	Stages    map[string][]string
	Permitted []string
}

// ActorPlan renders an actor's planning prompt.
func ActorPlan(in ActorPlanInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s round %d. You are %s, in %s.\n", TagPlan, in.Round, in.Self.Name, in.Stage)
	section(&b, "Stage", orNone(in.Narration))
	section(&b, "Exits", orNone(strings.Join(sorted(in.Outbound), ", ")))
	section(&b, "Props here", propList(in.Props))
	section(&b, "Others here", actorList(in.Others))
	section(&b, "You", SheetText(in.Self))
	responseFormat(&b, in.Permitted)
	return b.String()
}

// StagePlan renders a stage's planning prompt.
func StagePlan(in StagePlanInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s round %d. You are the stage %s.\n", TagPlan, in.Round, in.Stage)
	section(&b, "Current narration", orNone(in.Narration))
	section(&b, "Actors present", actorList(in.Actors))
	section(&b, "Props present", propList(in.Props))
	responseFormat(&b, in.Permitted)
	return b.String()
}

// WorldPlan renders a world system's planning prompt.
func WorldPlan(in WorldPlanInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s round %d. You are the world system %s.\n", TagPlan, in.Round, in.Name)
	stages := make([]string, 0, len(in.Stages))
	for s := range in.Stages {
		stages = append(stages, s)
	}
	sort.Strings(stages)
	var lines []string
	for _, s := range stages {
		lines = append(lines, fmt.Sprintf("- %s: %s", s, orNone(strings.Join(in.Stages[s], ", "))))
	}
	section(&b, "Stages", orNone(strings.Join(lines, "\n")))
	responseFormat(&b, in.Permitted)
	return b.String()
}

// KickOff renders the first message of an entity's conversation.
func KickOff(name, content, aboutGame string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s You are %s.", TagKickOff, name)
	if aboutGame != "" {
		fmt.Fprintf(&b, " %s", aboutGame)
	}
	if content != "" {
		fmt.Fprintf(&b, "\n%s", content)
	}
	return b.String()
}

// Perception renders what an actor perceives of its stage.
func Perception(stage, narration string, others []ActorView, props []PropView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s You look around %s.\n", TagPerceived, stage)
	section(&b, "Stage", orNone(narration))
	section(&b, "Others here", actorList(others))
	section(&b, "Props here", propList(props))
	return strings.TrimRight(b.String(), "\n")
}

// SheetText renders an actor sheet.
func SheetText(s Sheet) string {
	lines := []string{
		fmt.Sprintf("Health %d/%d, damage %d, defense %d.", s.HP, s.MaxHP, s.Damage, s.Defense),
		fmt.Sprintf("Weapon: %s. Clothes: %s.", orNone(s.Weapon), orNone(s.Clothes)),
		"Inventory:\n" + propList(s.Inventory),
	}
	if len(s.SkillCandidates) > 0 {
		lines = append(lines, "Selected skills: "+strings.Join(s.SkillCandidates, ", ")+".")
	}
	return strings.Join(lines, "\n")
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "## %s\n%s\n", title, body)
}

func responseFormat(b *strings.Builder, permitted []string) {
	fmt.Fprintf(b, "## Response\nReply with one JSON object. Keys: %s. Each value is an array of strings. "+
		"Address a target as \"@name>message\". Use each key at most once.\n", strings.Join(sorted(permitted), ", "))
}

func propList(props []PropView) string {
	if len(props) == 0 {
		return "none"
	}
	cp := append([]PropView(nil), props...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Name < cp[j].Name })
	lines := make([]string, 0, len(cp))
	for _, p := range cp {
		line := fmt.Sprintf("- %s (%s)", p.Name, p.Kind)
		if p.Count > 1 {
			line += fmt.Sprintf(" x%d", p.Count)
		}
		if p.Description != "" {
			line += ": " + p.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func actorList(actors []ActorView) string {
	if len(actors) == 0 {
		return "none"
	}
	cp := append([]ActorView(nil), actors...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Name < cp[j].Name })
	lines := make([]string, 0, len(cp))
	for _, a := range cp {
		lines = append(lines, fmt.Sprintf("- %s (health %d%%): %s", a.Name, a.HealthPercent, orNone(a.Appearance)))
	}
	return strings.Join(lines, "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

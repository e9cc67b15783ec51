package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r)
	assert.Len(t, r.Commands(), len(BuiltinCommands()))
}

func TestResolve_CanonicalName(t *testing.T) {
	r := DefaultRegistry()

	cmd, ok := r.Resolve("goto")
	assert.True(t, ok)
	assert.Equal(t, "goto", cmd.Name)
	assert.Equal(t, HandlerGoTo, cmd.Handler)
}

func TestResolve_Alias(t *testing.T) {
	r := DefaultRegistry()

	cmd, ok := r.Resolve("say")
	assert.True(t, ok)
	assert.Equal(t, "speak", cmd.Name)
}

func TestResolve_NotFound(t *testing.T) {
	r := DefaultRegistry()

	_, ok := r.Resolve("teleport")
	assert.False(t, ok)
}

func TestResolve_AllHandlers(t *testing.T) {
	r := DefaultRegistry()
	for _, c := range BuiltinCommands() {
		cmd, ok := r.Resolve(c.Name)
		require.True(t, ok, "canonical name %q not found", c.Name)
		assert.Equal(t, c.Handler, cmd.Handler)
		for _, alias := range c.Aliases {
			aliasCmd, ok := r.Resolve(alias)
			require.True(t, ok, "alias %q not found", alias)
			assert.Equal(t, c.Name, aliasCmd.Name)
		}
	}
}

func TestNewRegistry_DuplicateName(t *testing.T) {
	_, err := NewRegistry([]Command{
		{Name: "look", Handler: HandlerLook},
		{Name: "look", Handler: HandlerLook},
	})
	assert.Error(t, err)
}

func TestNewRegistry_AliasCollision(t *testing.T) {
	_, err := NewRegistry([]Command{
		{Name: "look", Aliases: []string{"l"}, Handler: HandlerLook},
		{Name: "leave", Aliases: []string{"l"}, Handler: HandlerQuit},
	})
	assert.Error(t, err)
}

func TestNewRegistry_AliasShadowsName(t *testing.T) {
	_, err := NewRegistry([]Command{
		{Name: "look", Handler: HandlerLook},
		{Name: "glance", Aliases: []string{"look"}, Handler: HandlerLook},
	})
	assert.Error(t, err)
}

func TestNewRegistry_UnknownHandler(t *testing.T) {
	_, err := NewRegistry([]Command{{Name: "dance", Handler: "dance"}})
	assert.ErrorContains(t, err, "unknown handler")
}

func TestResolve_FoldsCase(t *testing.T) {
	r, err := NewRegistry([]Command{{Name: "GoTo", Aliases: []string{"Walk"}, Handler: HandlerGoTo}})
	require.NoError(t, err)

	cmd, ok := r.Resolve("GOTO")
	require.True(t, ok)
	assert.Equal(t, "goto", cmd.Name)
	cmd, ok = r.Resolve("walk")
	require.True(t, ok)
	assert.Equal(t, "goto", cmd.Name)
}

func TestCommandsByCategory(t *testing.T) {
	r := DefaultRegistry()
	cats := r.CommandsByCategory()

	for _, cat := range []string{CategoryMovement, CategoryCommunication, CategoryInteraction, CategoryCombat, CategorySystem} {
		assert.NotEmpty(t, cats[cat], "category %q empty", cat)
	}
	names := []string{}
	for _, c := range cats[CategoryCommunication] {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"announce", "speak", "think", "whisper"}, names)
}

func TestHelpText_ListsEveryCommand(t *testing.T) {
	r := DefaultRegistry()
	text := r.HelpText()
	for _, c := range BuiltinCommands() {
		assert.Contains(t, text, c.Usage)
	}
}

func TestPropertyResolveNeverPanics(t *testing.T) {
	r := DefaultRegistry()
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")
		cmd, ok := r.Resolve(input)
		if ok {
			assert.NotNil(t, cmd)
		} else {
			assert.Nil(t, cmd)
		}
	})
}

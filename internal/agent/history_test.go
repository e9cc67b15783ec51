package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func human(s string) Message { return Message{Role: RoleHuman, Content: s} }
func ai(s string) Message    { return Message{Role: RoleAI, Content: s} }

func TestPopLastExchange(t *testing.T) {
	h := NewChatHistory(
		Message{Role: RoleSystem, Content: "you are A"},
		human("event"),
		human("plan now"),
		ai(`{"SpeakAction": "x"}`),
	)

	removed := h.PopLastExchange()
	assert.Equal(t, []Message{human("plan now"), ai(`{"SpeakAction": "x"}`)}, removed)
	assert.Equal(t, 2, h.Len())

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "event", last.Content)

	assert.Nil(t, h.PopLastExchange(), "no ai message at the end")
	assert.Equal(t, 2, h.Len())
}

func TestExcludeAndReplace(t *testing.T) {
	h := NewChatHistory(human("<%kickoff> hello"), ai("fine"), human("<%tip> go north"))

	assert.Equal(t, 1, h.Exclude([]string{"<%tip>"}))
	assert.Equal(t, []Message{human("<%kickoff> hello"), ai("fine")}, h.Messages())

	assert.Equal(t, 1, h.Replace(map[string]string{"hello": "goodbye", "": "ignored"}))
	assert.Equal(t, "<%kickoff> goodbye", h.Messages()[0].Content)
}

func TestPropertyPopDiscipline(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := NewChatHistory()
		var model []Message
		steps := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 40).Draw(t, "steps")
		for i, s := range steps {
			switch s {
			case 0:
				m := human(fmt.Sprint("event ", i))
				h.Append(m)
				model = append(model, m)
			case 1:
				p, r := human(fmt.Sprint("prompt ", i)), ai(fmt.Sprint("resp ", i))
				h.Append(p, r)
				model = append(model, p, r)
			default:
				before := h.Len()
				removed := h.PopLastExchange()
				if len(model) > 0 && model[len(model)-1].Role == RoleAI {
					cut := len(model) - 1
					if cut > 0 && model[cut-1].Role == RoleHuman {
						cut--
					}
					assert.Equal(t, model[cut:], removed)
					model = model[:cut]
				} else {
					assert.Empty(t, removed)
					assert.Equal(t, before, h.Len())
				}
			}
			assert.Equal(t, len(model), h.Len())
		}
		if len(model) == 0 {
			assert.Empty(t, h.Messages())
		} else {
			assert.Equal(t, model, h.Messages())
		}
	})
}

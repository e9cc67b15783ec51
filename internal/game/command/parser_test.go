package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result := Parse("")
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_NoPrefix(t *testing.T) {
	result := Parse("look")
	assert.Equal(t, "", result.Command)
}

func TestParse_BarePrefix(t *testing.T) {
	result := Parse("  /  ")
	assert.Equal(t, "", result.Command)
}

func TestParse_SingleWord(t *testing.T) {
	result := Parse("/look")
	assert.Equal(t, "look", result.Command)
	assert.Nil(t, result.Args)
	assert.Equal(t, "", result.RawArgs)
}

func TestParse_Lowercase(t *testing.T) {
	result := Parse("/GOTO Square")
	assert.Equal(t, "goto", result.Command)
	assert.Equal(t, "Square", result.RawArgs)
}

func TestParse_WithArgs(t *testing.T) {
	result := Parse("/speak @Innkeeper>hello world")
	assert.Equal(t, "speak", result.Command)
	assert.Equal(t, []string{"@Innkeeper>hello", "world"}, result.Args)
	assert.Equal(t, "@Innkeeper>hello world", result.RawArgs)
}

func TestParse_ExtraWhitespace(t *testing.T) {
	result := Parse("  /announce   hello   world  ")
	assert.Equal(t, "announce", result.Command)
	assert.Equal(t, []string{"hello", "world"}, result.Args)
	assert.Equal(t, "hello   world", result.RawArgs)
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		result := Parse("/" + word)
		for _, c := range result.Command {
			if c >= 'A' && c <= 'Z' {
				t.Fatalf("command %q contains uppercase char in Parse result %q", word, result.Command)
			}
		}
	})
}

func TestPropertyParseUnprefixedIsEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		line := rapid.StringMatching(`[A-Za-z0-9 @>]{0,40}`).Draw(t, "line")
		assert.Equal(t, "", Parse(line).Command)
	})
}

func TestPropertyParseRawArgsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cmd := rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "cmd")
		args := rapid.StringMatching(`[a-zA-Z0-9]{1,10}( [a-zA-Z0-9]{1,10}){0,4}`).Draw(t, "args")
		result := Parse("/" + cmd + " " + args)
		assert.Equal(t, cmd, result.Command)
		assert.Equal(t, args, result.RawArgs)
	})
}

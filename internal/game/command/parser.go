package command

import "strings"

// Prefix starts every player command.
const Prefix = "/"

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input without the prefix, lowercased.
	// It is empty when the line does not start with Prefix.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command, preserving inner spacing.
	RawArgs string
}

// Parse splits a slash command line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is empty or lacks the prefix, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, Prefix) {
		return ParseResult{}
	}
	line = strings.TrimSpace(line[len(Prefix):])
	if line == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexAny(line, " \t")
	if spaceIdx < 0 {
		return ParseResult{Command: strings.ToLower(line)}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: cmd,
		Args:    args,
		RawArgs: rest,
	}
}

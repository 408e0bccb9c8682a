package main

import (
	"fmt"
	"os"
	"strings"
)

const defaultInstructions = `
Instructions:
##
Review the attached code and find bugs and issues in the code. Attached diff for review and original files.
Added lines are marked with "+" and removed lines are marked with "-". Lines that are not changed are not marked.
Suggest improvements for the change in the file.
Write exact lines of files that need to be changed. Don't explain the purpose of the original file.
Do not suggest descriptive variable name.
The diff code is below:
##
`

// resolveInstructions picks the prompt file, then the inline prompt, then
// the built-in instructions.
func resolveInstructions(promptFile, inline string) (string, error) {
	switch {
	case promptFile != "":
		b, err := os.ReadFile(promptFile)
		if err != nil {
			return "", fmt.Errorf("read prompt file: %w", err)
		}
		return string(b), nil
	case inline != "":
		return inline, nil
	default:
		return defaultInstructions, nil
	}
}

func reviewPrompt(instructions, diff string) string {
	return instructions + "```\n" + diff + "\n```"
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

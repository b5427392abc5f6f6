package chatrouter

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reFirstDigits = regexp.MustCompile(`\d+`)
	reChangeTo    = regexp.MustCompile(`(?i)(?:change to |update to |new title: )(.+)`)
	reUpdateAs    = regexp.MustCompile(`(?i)(?:update task|modify task).*?(?:to |as )(.+)`)
)

// ExtractTaskTitle pulls a new-task title out of messages like
// "Add a task to buy groceries". Extraction is lexical and best-effort:
// known leading phrases are stripped first, then the text after the first
// "to " or "that ", with "New Task" as the last resort.
func ExtractTaskTitle(message string) string {
	lower := strings.ToLower(message)
	title := message

	switch {
	case strings.HasPrefix(lower, "add a task to "), strings.HasPrefix(lower, "add task to "):
		title = message[strings.Index(lower, "to ")+3:]
	case strings.HasPrefix(lower, "create a task to "), strings.HasPrefix(lower, "create task to "):
		title = message[strings.Index(lower, "to ")+3:]
	case strings.Contains(lower, "to "):
		title = message[strings.Index(lower, "to ")+3:]
	case strings.Contains(lower, "that "):
		title = message[strings.Index(lower, "that ")+5:]
	}

	title = strings.TrimSpace(title)
	title = strings.TrimSuffix(title, ".")
	if title == "" {
		return "New Task"
	}
	return title
}

// ExtractTaskID returns the first run of digits anywhere in the message.
// ok is false when the message carries no digits at all.
func ExtractTaskID(message string) (int64, bool) {
	match := reFirstDigits.FindString(message)
	if match == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExtractUpdatedTitle finds the replacement title in an update command,
// first via the explicit "change to"/"update to"/"new title:" forms, then the
// looser "update task ... to/as ..." form.
func ExtractUpdatedTitle(message string) (string, bool) {
	if m := reChangeTo.FindStringSubmatch(message); len(m) == 2 {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title, true
		}
	}
	if m := reUpdateAs.FindStringSubmatch(message); len(m) == 2 {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title, true
		}
	}
	return "", false
}

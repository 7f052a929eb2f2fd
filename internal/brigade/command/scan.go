package command

// Scan splits commands at the first element matching pred. It returns the
// prefix before the match, the matching command, and the remainder after it.
// When no element matches, ok is false and the prefix is the whole input.
// The input slice is never mutated.
func Scan(commands []Command, pred func(Command) bool) (prefix []Command, match Command, rest []Command, ok bool) {
	for i, cmd := range commands {
		if pred(cmd) {
			return commands[:i], cmd, commands[i+1:], true
		}
	}
	return commands, nil, nil, false
}

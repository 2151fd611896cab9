package reports

// CommandKind tags an undoable edit of the field selection
type CommandKind int

const (
	CommandAddField CommandKind = iota
	CommandRemoveField
)

// Command records one field edit together with the position it touched, so
// it can be inverted exactly.
type Command struct {
	Kind  CommandKind
	Field string
	Index int
}

func (c Command) apply(fields []string) []string {
	out := make([]string, 0, len(fields)+1)
	switch c.Kind {
	case CommandAddField:
		i := clamp(c.Index, 0, len(fields))
		out = append(out, fields[:i]...)
		out = append(out, c.Field)
		out = append(out, fields[i:]...)
	case CommandRemoveField:
		for i, f := range fields {
			if i == c.Index && f == c.Field {
				continue
			}
			out = append(out, f)
		}
	}
	return out
}

func (c Command) invert() Command {
	if c.Kind == CommandAddField {
		c.Kind = CommandRemoveField
	} else {
		c.Kind = CommandAddField
	}
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// History is a linear undo stack with a cursor. Commands at or after the
// cursor are the redo tail.
type History struct {
	commands []Command
	cursor   int
}

// Do applies cmd and records it, dropping any redo tail
func (h *History) Do(fields []string, cmd Command) []string {
	h.commands = append(h.commands[:h.cursor], cmd)
	h.cursor++
	return cmd.apply(fields)
}

// Undo reverts the last applied command
func (h *History) Undo(fields []string) ([]string, bool) {
	if !h.CanUndo() {
		return fields, false
	}
	h.cursor--
	return h.commands[h.cursor].invert().apply(fields), true
}

// Redo reapplies the next command of the redo tail
func (h *History) Redo(fields []string) ([]string, bool) {
	if !h.CanRedo() {
		return fields, false
	}
	cmd := h.commands[h.cursor]
	h.cursor++
	return cmd.apply(fields), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.commands) }

// Len returns the number of recorded commands, including the redo tail
func (h *History) Len() int { return len(h.commands) }

// Clear forgets every command
func (h *History) Clear() {
	h.commands = nil
	h.cursor = 0
}

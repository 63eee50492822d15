package bot

import "strings"

// SplitMessage splits text into chunks of at most maxLength characters,
// breaking on line boundaries where possible. Whole lines are packed greedily
// into each chunk, counting one character for the newline between them. A
// single line longer than maxLength is hard-split into maxLength-sized slices.
func SplitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	current := ""

	for _, line := range strings.Split(text, "\n") {
		if len(line) > maxLength {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			for len(line) > maxLength {
				chunks = append(chunks, line[:maxLength])
				line = line[maxLength:]
			}
			if line != "" {
				chunks = append(chunks, line)
			}
			continue
		}

		switch {
		case current == "":
			current = line
		case len(current)+len(line)+1 > maxLength:
			chunks = append(chunks, current)
			current = line
		default:
			current += "\n" + line
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

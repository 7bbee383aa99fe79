package cleaner

import "strings"

// DefaultMaxLength leaves headroom under the chat platform's 4000-char
// message cap.
const DefaultMaxLength = 3900

// Split cuts text into chunks of at most maxLength characters. A cut never
// leaves a code fence open: when forced to break inside a fenced block the
// splitter closes the fence at the break and reopens it with the same
// language tag in the next chunk, so every chunk renders on its own.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if len(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	inFence := false
	fenceLang := ""

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	// breakChunk ends the current chunk at a point where the fence state is
	// inFence, closing and reopening as needed.
	breakChunk := func() {
		if current.Len() == 0 {
			return
		}
		if inFence {
			current.WriteString("```\n")
			flush()
			current.WriteString("```" + fenceLang + "\n")
		} else {
			flush()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		// Hard-split a single line longer than the limit; such a line
		// cannot share a chunk with anything else. The margin leaves room
		// for synthetic fence markers.
		for len(line) > maxLength-16 {
			breakChunk()
			cut := maxLength - 16
			head := line[:cut]
			line = line[cut:]
			if inFence {
				chunks = append(chunks, "```"+fenceLang+"\n"+head+"\n```")
			} else {
				chunks = append(chunks, head)
			}
		}

		if current.Len()+len(line)+1 > maxLength-8 {
			breakChunk()
		}
		current.WriteString(line)
		current.WriteString("\n")

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				inFence = true
				fenceLang = trimmed[3:]
			} else {
				inFence = false
				fenceLang = ""
			}
		}
	}
	flush()

	return chunks
}

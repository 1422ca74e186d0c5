package summarizer

import "unicode/utf8"

// SplitChunks partitions document into contiguous, non-overlapping chunks of
// size characters, left to right. The last chunk may be shorter. Sizes count
// runes, so multi-byte characters are never split.
func SplitChunks(document string, size int) []string {
	if size <= 0 || document == "" {
		return nil
	}

	chunks := make([]string, 0, utf8.RuneCountInString(document)/size+1)
	start, n := 0, 0
	for i := range document {
		if n == size {
			chunks = append(chunks, document[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, document[start:])
}

package index

import "strings"

// Fragment is a slice of the synopsis text. OverlapLen is the number of
// leading characters shared with the previous fragment, so the original
// text can be reconstructed by stripping each fragment's overlap prefix.
type Fragment struct {
	Text       string
	OverlapLen int
}

// SplitSynopsis cuts the synopsis on line boundaries into fragments of at
// most size characters, seeding each fragment with up to overlap trailing
// characters of its predecessor. A single line longer than size becomes an
// oversized fragment rather than being cut mid-line.
func SplitSynopsis(text string, size, overlap int) []Fragment {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	segments := strings.SplitAfter(text, "\n")

	fragments := make([]Fragment, 0)
	current := make([]string, 0)
	currentLen := 0
	overlapLen := 0

	for _, segment := range segments {
		if segment == "" {
			continue
		}
		if currentLen+len(segment) > size && currentLen > overlapLen {
			fragments = append(fragments, Fragment{
				Text:       strings.Join(current, ""),
				OverlapLen: overlapLen,
			})
			current, currentLen = overlapTail(current, overlap)
			overlapLen = currentLen
		}
		current = append(current, segment)
		currentLen += len(segment)
	}

	if currentLen > overlapLen {
		fragments = append(fragments, Fragment{
			Text:       strings.Join(current, ""),
			OverlapLen: overlapLen,
		})
	}

	return fragments
}

// JoinFragments inverts SplitSynopsis.
func JoinFragments(fragments []Fragment) string {
	var sb strings.Builder
	for _, fragment := range fragments {
		sb.WriteString(fragment.Text[fragment.OverlapLen:])
	}
	return sb.String()
}

func overlapTail(segments []string, overlap int) ([]string, int) {
	if overlap <= 0 {
		return nil, 0
	}

	total := 0
	start := len(segments)
	for start > 0 {
		segLen := len(segments[start-1])
		if total+segLen > overlap {
			break
		}
		total += segLen
		start--
	}

	tail := append([]string(nil), segments[start:]...)
	return tail, total
}

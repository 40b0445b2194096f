package git

import (
	"regexp"
	"strings"
)

// CommitIDTrailer is the trailer key that carries a commit's stable identity
const CommitIDTrailer = "commit-id"

var trailerLineRegex = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_-]*): (.*)$`)

// Trailer is a single "key: value" line from a commit message trailer block
type Trailer struct {
	Key   string
	Value string
}

func (t Trailer) String() string {
	return t.Key + ": " + t.Value
}

// Subject returns the first line of a commit message
func Subject(message string) string {
	message = strings.TrimLeft(message, "\r\n")
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = message[:idx]
	}
	return strings.TrimSpace(message)
}

// splitTrailers separates a message into the text before its trailer block
// and the parsed trailers. The paragraph after the last blank line is a
// trailer block only if every one of its lines is "key: value"; the subject
// paragraph is never a trailer block.
func splitTrailers(message string) (string, []Trailer) {
	trimmed := strings.TrimRight(message, " \t\r\n")
	lines := strings.Split(trimmed, "\n")

	blank := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			blank = i
			break
		}
	}
	if blank < 0 {
		return trimmed, nil
	}

	head := strings.TrimRight(strings.Join(lines[:blank], "\n"), " \t\r\n")
	if strings.TrimSpace(head) == "" {
		return trimmed, nil
	}

	block := lines[blank+1:]
	trailers := make([]Trailer, 0, len(block))
	for _, line := range block {
		m := trailerLineRegex.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			return trimmed, nil
		}
		trailers = append(trailers, Trailer{Key: m[1], Value: strings.TrimSpace(m[2])})
	}
	return head, trailers
}

// ParseTrailers returns the trailers of a commit message in order
func ParseTrailers(message string) []Trailer {
	_, trailers := splitTrailers(message)
	return trailers
}

// GetTrailer returns the value of the first trailer with the given key, or ""
func GetTrailer(message, key string) string {
	for _, t := range ParseTrailers(message) {
		if t.Key == key {
			return t.Value
		}
	}
	return ""
}

// StripTrailers returns the message without its trailer block
func StripTrailers(message string) string {
	head, _ := splitTrailers(message)
	return head
}

// Body returns the message without its subject line and trailer block
func Body(message string) string {
	head := StripTrailers(message)
	head = strings.TrimLeft(head, "\r\n")
	idx := strings.IndexByte(head, '\n')
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(head[idx+1:])
}

// AddTrailer appends a trailer to the message's trailer block, creating the
// block if the message has none
func AddTrailer(message, key, value string) string {
	head, trailers := splitTrailers(message)
	trailers = append(trailers, Trailer{Key: key, Value: value})

	lines := make([]string, 0, len(trailers))
	for _, t := range trailers {
		lines = append(lines, t.String())
	}
	return head + "\n\n" + strings.Join(lines, "\n") + "\n"
}

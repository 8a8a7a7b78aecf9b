package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrUserNotFound is returned by a UserResolver when the account no longer exists
var ErrUserNotFound = errors.New("user not found")

// MaxReplyLength is the platform's per-message character limit
const MaxReplyLength = 2000

// Message is a platform-neutral inbound chat message
type Message struct {
	ID            string
	ChannelID     string
	GuildID       string
	AuthorID      string
	AuthorMention string
	AuthorIsBot   bool
	Content       string
	Timestamp     time.Time
}

// Reply is the text a command sends back to the channel it came from
type Reply struct {
	ChannelID string
	Content   string
}

// Chunks splits the reply on line boundaries into pieces no longer than
// MaxReplyLength. A single line longer than the limit is hard-split on a rune
// boundary.
func (r *Reply) Chunks() []string {
	if len(r.Content) <= MaxReplyLength {
		return []string{r.Content}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.SplitAfter(r.Content, "\n") {
		for len(line) > MaxReplyLength {
			flush()
			cut := runeCut(line, MaxReplyLength)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if current.Len()+len(line) > MaxReplyLength {
			flush()
		}
		current.WriteString(line)
	}
	flush()

	return chunks
}

// runeCut returns the largest index <= limit that does not split a UTF-8 rune
func runeCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}

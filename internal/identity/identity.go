// Package identity derives conversation identifiers and classifies
// participants. Everything here is pure.
package identity

import "strings"

const (
	// conversationPrefix keeps derived ids out of the plain username
	// space so distinct unordered pairs can never collide.
	conversationPrefix = "dm"
	// separator is not a legal username character.
	separator = "|"
)

// ConversationID maps two participants to one canonical conversation
// identifier. It is commutative: ConversationID(a, b) == ConversationID(b, a).
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return conversationPrefix + separator + a + separator + b
}

// Counterparty returns the other participant of a conversation id, or
// false if the id is malformed or does not contain self.
func Counterparty(conversationID, self string) (string, bool) {
	parts := strings.Split(conversationID, separator)
	if len(parts) != 3 || parts[0] != conversationPrefix {
		return "", false
	}
	switch self {
	case parts[1]:
		return parts[2], true
	case parts[2]:
		return parts[1], true
	}
	return "", false
}

// ConversationPatterns returns the two SQL LIKE patterns matching every
// conversation id that contains self, for either ordering of the pair.
func ConversationPatterns(self string) (first, second string) {
	return conversationPrefix + separator + self + separator + "%",
		conversationPrefix + separator + "%" + separator + self
}

// IsGuest reports whether a username identifies a guest participant:
// exactly 7 ASCII digits. Guests have no stored profile, so profile
// lookups are skipped for them.
func IsGuest(username string) bool {
	if len(username) != 7 {
		return false
	}
	for i := 0; i < len(username); i++ {
		if username[i] < '0' || username[i] > '9' {
			return false
		}
	}
	return true
}

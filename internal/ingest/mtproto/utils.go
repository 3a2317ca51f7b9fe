package mtproto

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

// Bot API style ids of channels carry this prefix.
const channelIDPrefix = "-100"

func sanitizePhone(phone string) string {
	var sb strings.Builder

	phone = strings.TrimSpace(phone)

	if strings.HasPrefix(phone, "+") {
		sb.WriteByte('+')

		phone = phone[1:]
	}

	for _, char := range phone {
		if char >= '0' && char <= '9' {
			sb.WriteRune(char)
		}
	}

	return sb.String()
}

func maskPhone(phone string) string {
	if len(phone) < 7 {
		return "****"
	}

	return phone[:3] + "****" + phone[len(phone)-2:]
}

// parseChannelRef accepts "@name", "name", "t.me/name", "-100123" or "123".
// Exactly one of username and id is set on success.
func parseChannelRef(ref string) (string, int64, error) {
	ref = strings.TrimSpace(ref)

	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/", "@"} {
		ref = strings.TrimPrefix(ref, prefix)
	}

	ref = strings.TrimSuffix(ref, "/")

	if ref == "" {
		return "", 0, fmt.Errorf("%w: empty channel reference", apperrors.ErrInvalidConfig)
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if trimmed, ok := strings.CutPrefix(ref, channelIDPrefix); ok {
			id, err = strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				return "", 0, fmt.Errorf("%w: channel id %q", apperrors.ErrInvalidConfig, ref)
			}
		}

		if id < 0 {
			id = -id
		}

		return "", id, nil
	}

	return ref, 0, nil
}

// truncateRunes cuts s to at most n runes, ending with "..." when cut.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	const ellipsis = "..."

	r := []rune(s)

	return string(r[:n-len(ellipsis)]) + ellipsis
}

// randomID returns a request id for send methods.
func randomID() int64 {
	u := uuid.New()

	return int64(binary.BigEndian.Uint64(u[:8])) //nolint:gosec // id only needs to be unique
}

package telegram

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal resolution errors. These are never retried: the caller reports
// them and exits.
var (
	ErrChannelNotFound = errors.New("channel does not exist")
	ErrChannelPrivate  = errors.New("channel is private or inaccessible")
	ErrNotAChannel     = errors.New("identifier does not refer to a channel")
)

// FloodWaitSeconds returns the cooldown demanded by a FLOOD_WAIT error,
// or 0 if err is not a throttling signal.
//
// gotd wraps rpc errors in several layers, so the error string is the most
// reliable detection point without coupling to the tg error definitions.
// The format is "FLOOD_WAIT_N" where N is seconds.
func FloodWaitSeconds(err error) int {
	if err == nil {
		return 0
	}

	str := err.Error()
	idx := strings.Index(str, "FLOOD_WAIT_")
	if idx < 0 {
		return 0
	}

	var seconds int
	numStr := strings.TrimSpace(str[idx+len("FLOOD_WAIT_"):])
	// the code may be followed by rpc context, e.g. "FLOOD_WAIT_15 (caused by ...)"
	_, _ = fmt.Sscanf(numStr, "%d", &seconds)
	return seconds
}

// mapResolveError converts raw rpc errors from channel resolution into the
// fatal sentinel taxonomy, leaving other errors untouched.
func mapResolveError(err error, ref string) error {
	if err == nil {
		return nil
	}

	str := err.Error()
	switch {
	case strings.Contains(str, "USERNAME_NOT_OCCUPIED"),
		strings.Contains(str, "USERNAME_INVALID"):
		return fmt.Errorf("%w: %s", ErrChannelNotFound, ref)
	case strings.Contains(str, "CHANNEL_PRIVATE"),
		strings.Contains(str, "CHANNEL_INVALID"):
		return fmt.Errorf("%w: %s", ErrChannelPrivate, ref)
	}
	return err
}

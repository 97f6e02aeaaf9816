package paginator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCannotPaginate is matched by every CapabilityError
	ErrCannotPaginate = errors.New("cannot paginate")

	// ErrSessionStopped is returned by operations on a stopped session
	ErrSessionStopped = errors.New("pagination session is stopped")

	// ErrNoAnswer is returned by Confirm when the author did not react in time
	ErrNoAnswer = errors.New("no answer before timeout")

	// ErrInvalidPerPage is returned when the page size is not positive
	ErrInvalidPerPage = errors.New("per page must be positive")

	// ErrTagsMismatch is returned when filter tags are not parallel to entries
	ErrTagsMismatch = errors.New("tags must have one element per entry")
)

// CapabilityError reports the permissions the bot is missing in a channel
type CapabilityError struct {
	ChannelID string
	Missing   []string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("bot lacks %s permission in channel %s", strings.Join(e.Missing, ", "), e.ChannelID)
}

// Is makes errors.Is(err, ErrCannotPaginate) hold
func (e *CapabilityError) Is(target error) bool {
	return target == ErrCannotPaginate
}

// checkCapabilities fails when any permission the interactive protocol needs is absent
func checkCapabilities(channelID string, perms Permissions) error {
	var missing []string
	if !perms.Embed {
		missing = append(missing, "embed links")
	}
	if !perms.AddReactions {
		missing = append(missing, "add reactions")
	}
	if !perms.ReadHistory {
		missing = append(missing, "read message history")
	}
	if len(missing) > 0 {
		return &CapabilityError{ChannelID: channelID, Missing: missing}
	}
	return nil
}

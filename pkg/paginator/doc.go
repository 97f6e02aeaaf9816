// Package paginator presents a long list of entries to one chat user as a
// single message that is flipped page by page through reaction triggers.
//
// Invariants:
//   - Pages are 1-based. While MaximumPage() >= 1, 1 <= CurrentPage() <= MaximumPage().
//   - A session owns exactly one rendered message. The first render sends it,
//     later renders edit it.
//   - Only reactions on the session message, by the command author (any
//     non-bot user in private channels), with a bound symbol are processed.
//   - Events are processed one at a time. The idle timeout restarts after
//     every accepted event.
//   - Cleanup calls (reaction removal and clearing) never fail a session.
//
// Usage:
//
//	s, err := paginator.New(ctx, transport, seed, entries, paginator.DefaultOptions())
//	if err != nil {
//		return err // *CapabilityError when the bot lacks permissions
//	}
//	return s.Run(ctx)
package paginator

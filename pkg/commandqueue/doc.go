// Package commandqueue runs chat command invocations in per-user lanes.
//
// Invariants:
//   - Tasks in the same lane start in FIFO order, at most Concurrency at a time.
//   - Tasks in different lanes run independently of each other.
//   - A request id seen within the dedupe TTL is rejected with ErrDuplicate.
//   - A preempting job cancels the lane's running tasks and rejects its queued
//     ones, so a user's newest command replaces the previous one.
//   - Queue activity is reported through events registered with On.
//
// Usage:
//
//	queue := commandqueue.New(commandqueue.Options{DedupeTTL: 5 * time.Minute})
//	defer queue.Close()
//	err := queue.Submit(ctx, commandqueue.Job{
//		Lane:      commandqueue.LaneFor("telegram", chatID, userID),
//		RequestID: messageID,
//		Preempt:   true,
//		Run:       func(ctx context.Context) error { return session.Run(ctx) },
//	})
package commandqueue

// Package events defines the auction events exchanged in process.
//
//   - Outcome: result of one pool resolution, published on the event bus
//   - AssignmentsInvalidated: a collaborator flow removed or disabled a
//     vehicle that was assigned to schedules of a pool
package events

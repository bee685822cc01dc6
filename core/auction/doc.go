// Package auction decides which schedule operates each (line, frame) pool.
//
// A schedule is eligible when every duty block its plan requires has a
// vehicle assigned and its bid does not exceed the cap for its frequency.
// Among eligible schedules the highest intensity wins, then the lowest bid,
// then the oldest id. Resolutions of one pool are serialized; different
// pools resolve in parallel.
package auction

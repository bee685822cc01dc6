// Package schedule implements the user-facing schedule operations: create,
// frequency update, delete, duty planning and manual block assignment. Every
// write that can change a pool's outcome resolves that pool before
// returning.
package schedule

// Package duty turns a service window and a headway into vehicle duties.
//
// GenerateSlots lists the departures a schedule requires. Plan packs those
// departures greedily into the smallest set of vehicle shifts that respect
// the continuous-work limit, inserting rest breaks where a vehicle has
// enough slack. The result is a pure function of its inputs and is never
// persisted; persisted assignments only refer to duties by block index.
package duty

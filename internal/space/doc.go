// Package space holds the value types and pure functions behind collision
// tracking: kinematic bodies, images, the priority-ordered collision index,
// the contact table, and the broad and narrow phase solver.
//
// Nothing here schedules events or notifies entities; that glue lives in
// the world package.
package space

// Package sched implements the pure scheduling calculations of the engine:
// next-occurrence recurrence math, time-range conflict detection, and the
// notification window decision. All functions are side-effect free and
// deterministic, taking the current time as an explicit argument.
package sched

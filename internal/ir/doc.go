// Package ir provides the canonical intermediate representation for
// compiled rulesets: component definitions, zones, actions, rules,
// triggers, and the turn structure, plus the runtime event/reaction
// record shapes that cross the store boundary.
//
// This package contains type definitions only. All other internal
// packages import ir; ir imports nothing internal. This keeps the IR
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere (see value.go) - use int64 for numbers,
//     which keeps effect resolution and replay bit-for-bit deterministic.
//   - Matches are single-tenant: there is no security/auth context on
//     IR records (see the spec's transport Non-goal).
//   - All JSON tags use snake_case.
//   - Logical clocks (seq) only, never wall-clock timestamps.
package ir

// Package progress is the domain model of a user's playground progress.
//
// It defines:
//
//   - Entities: UserProgress, CompletedSection
//   - Results: Outcome (a completion attempt) and Snapshot (a progress read)
//   - The ResetPolicy that zeroes progress when a new calendar month begins
//   - The Repository contract: a per-user atomic unit of work (UserTx)
//   - The Engine that ties the three together
//
// # Invariants
//
// A user's TotalXP always equals the sum of XPAwarded over the user's
// completed sections. A (user, scenario) pair is completed at most once, so a
// completion is idempotent and safe to retry.
//
// Every mutation of one user runs inside Repository.Update, which serializes
// work per user and commits all-or-nothing. Different users never contend.
//
// # Monthly reset
//
// Resets are lazy. Engine methods evaluate the ResetPolicy inside the same
// unit of work as the operation they serve:
//
//	engine := progress.NewEngine(store, catalog.DefaultXPTable(), progress.NewResetPolicy(time.UTC, time.Now))
//	out, err := engine.CompleteScenario(ctx, "user-1", "drag-drop", catalog.TierAdvanced)
//
// Nothing sweeps idle users at the month boundary; they are reset on their
// next access. Readers that bypass the Engine (the ranking) may therefore see
// pre-reset totals.
//
// The package depends only on the standard library, the catalog domain and
// pkg/timeutil.
package progress

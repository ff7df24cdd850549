// Package core provides the business logic for bulk student imports.
//
// This package holds all domain logic independent of any transport. It is
// used by the web handlers, the enrollctl CLI, and tests without modification.
//
// # Pipeline
//
// An import runs in two requests:
//
//  1. [Service.ValidateFile] parses the upload with the [RecordParser]
//     registered for its extension, runs the [Validator] over every row and
//     stores the rows with their verdicts in the [SessionStore].
//  2. [Service.CommitImport] takes (and thereby clears) the held session,
//     then the [Committer] persists each valid row in its own transaction:
//     allocate an enrollment number, insert the student, insert the
//     registration fee. One [ImportLogEntry] is written per run.
//
// Row failures are data, not faults. A row that fails validation is skipped at
// commit, and a row whose transaction fails is reported in the outcome while
// the batch continues.
//
// # Persistence
//
// Storage is reached only through the [Store] interface. Optional capabilities
// ([BatchDuplicateFinder], [EnrollmentSequencer], [ImportLogLister]) are
// detected with type assertions, so a minimal store still works.
//
// # Error Handling
//
// Input and state failures are typed or sentinel errors (see errors.go).
// [MapError] turns any error into a user-facing message with a support code:
//
//   - IMP001-IMP099: Import state errors (no validated data, missing course)
//   - DB001-DB099: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL099: Validation errors (missing columns)
//   - FILE001-FILE099: File errors (size, format, encoding)
//   - UPL001-UPL099: Concurrency and cancellation errors
package core

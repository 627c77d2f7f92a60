// Package core provides the business logic for shipment management.
//
// This package holds all domain logic independent of any transport. It is
// used by the HTTP server, the shipctl CLI and tests without modification.
//
// # Architecture
//
//   - Parser: [RowParser] splits uploaded CSV text into header-keyed rows.
//   - Validation: [ValidateRow] and [ValidateInput] apply per-field rules.
//   - Importer: [Importer] runs rows through validation, city correction and
//     persistence, reporting progress after every row.
//   - Service: [Service] is the entry point for create, update, delete,
//     listing, export and tracked background imports.
//
// # Persistence
//
// The whole collection is stored as one value behind the [Store] interface.
// Every mutation is a LoadAll, mutate, SaveAll, NotifyChanged cycle run
// under the service lock. Subscribers of [Store.Subscribe] reload the
// collection when signalled.
//
// # Imports
//
// The flow of a tracked import is:
//
//  1. Client calls [Service.StartImport] with the uploaded file
//  2. The file is checked (present, size, .csv) and an import slot acquired
//  3. Rows are processed one at a time with a pacing delay
//  4. Progress is broadcast to subscribers via [Service.SubscribeProgress]
//  5. [Service.GetImportResult] returns the final [ImportStatistics]
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code prefix for support reference: VAL, FILE, IMP,
// STORE, CORR, SHP and REQ.
package core

// Package odata compiles querynode expression trees into OData v4 query
// fragments for a table list endpoint.
//
//	[fluent builder] → [querynode tree] → [odata.Compiler] → "$filter" text
//
// The compiler is syntax directed: every node kind has exactly one rendering,
// and any shape it cannot render fails with a *TranslationError instead of
// being dropped or approximated. Output is deterministic, so compiled
// strings are stable cache keys and test fixtures.
//
// Member paths go through a MemberResolver, which owns the mapping from Go
// field names to wire names (usually the json tag) and declares each
// field's Kind. The compiler never guesses a wire name on its own.
//
// Offset-aware timestamps (KindDateTimeOffset) can be compared and ordered
// directly but cannot be converted, navigated into, or passed to functions;
// the service cannot evaluate those forms reliably.
package odata

// Package executor runs normalized operations against a Runtime and
// assembles partial-failure-tolerant results.
//
// # Overview
//
// The executor walks the merged field tree produced by the normalizer. For a
// resolved object it picks the fields that apply to the object's concrete
// type, drops those whose @skip/@include conditions fail, and resolves the
// rest. Response keys keep selection order regardless of the order in which
// resolvers finish.
//
// # Preparation
//
// Before execution, the executor coerces the request variables against the
// declared variable types. Absent variables take their declared default or
// stay absent, so argument defaults apply. An absent or null variable of a
// Non-Null type fails the request with no data. Errors here stop execution.
//
// # Field pipeline
//
// Each field goes through these steps:
//
//  1. Gating: conditions are evaluated before anything else. A skipped field is
//     absent from the response and its resolver is never called.
//  2. Arguments: variable references in the bound arguments are replaced by
//     the coerced variable values and the arguments are validated again.
//  3. Resolution: Runtime.ResolveField is called with the parent value and the
//     argument map. A cancelled context fails the field without a call.
//  4. Output coercion: the raw result becomes a typed value. Leaves are
//     serialized by their scalar or enum type, lists keep their structure, and
//     interface or union results are typed through Runtime.ResolveType.
//  5. Directives: value transformers declared on the field definition run
//     first, then those written in the query, in order. Each sees the
//     previous output. List filtering happens here, before any child field
//     of a list element is resolved.
//  6. Completion: object values resolve their child field set. Null values
//     stop the descent.
//
// # Errors and Partial Success
//
// A failing field records a located error and becomes null. When its type is
// Non-Null, the null propagates to the nearest nullable ancestor, which
// absorbs it; sibling fields still appear in the response. When the
// propagation reaches the root, data is null. Every error is reported once.
//
// # Concurrency
//
// WithConcurrency lets sibling fields run on separate goroutines while a
// weighted semaphore bounds the number of resolver calls in flight. A field's
// children only start once the field value and its directives are done.
// Mutation root fields always run one after another. Error order follows
// completion order when execution is concurrent.
package executor

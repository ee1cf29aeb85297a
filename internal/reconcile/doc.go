// Package reconcile checks that a metadata write became visible the way the service is known to apply it.
//
// The service acknowledges a write before reads reflect it and silently ignores writes to some fields, so the
// acknowledgement alone says little. [Predict] applies a delta using the taxonomy: Mutable fields take the
// requested value, everything else keeps its old value and Dependent fields follow their masters.
// [Reconciler.Verify] waits for the settle interval, re-fetches the record and compares it field by field,
// polling with capped exponential backoff until the prediction holds or the wait budget is spent.
//
// Every wait honours context cancellation. The [ComparisonReport] records per-field verdicts and is returned
// whether or not the prediction held; deciding what counts as a pass is left to the caller.
package reconcile

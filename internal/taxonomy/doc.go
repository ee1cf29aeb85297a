// package taxonomy classifies the metadata fields of a track record.
//
// Every field the service returns belongs to exactly one [Category]. The table is data: new fields are
// supported by adding entries to [DefaultFields], never by changing the code that compares records.
//
//   - Mutable fields change when a client asks them to.
//   - Frozen fields are accepted in a write and silently ignored.
//   - Dependent fields are recomputed from a master field.
//   - ServerOwned fields drift on their own (play counts, curation flags).
//   - Limited fields are writable only under type constraints and are never asserted.
package taxonomy

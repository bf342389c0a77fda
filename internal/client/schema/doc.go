// Package schema maps section payloads between their wire form (as stored
// by the record store, including legacy encodings) and the normalized
// in-memory models.SectionState.
//
// Every section is described by a Section descriptor listing its scalar
// fields, list fields and sub-item collections. The Mapper uses the
// descriptor both directions:
//
//   - FromWire accepts anything the record store has ever written (dates in
//     several layouts, delimiter-joined lists, JSON stored inside strings,
//     attachments as bare strings or objects) and never fails; recovered
//     anomalies are logged.
//   - ToWire writes one encoding: ISO dates, lists joined by
//     ReservedDelimiter, and only visible, non-empty sub-items.
//
// Known limitation: a drug list written by older clients as a plain ", "
// join cannot be told apart from a single drug name containing ", ". Such
// values are split on ", ".
package schema

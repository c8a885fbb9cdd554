// Package sanitizer normalizes teacher profile input before validation and storage.
//
// All functions are idempotent and never fail: invalid input normalizes to the empty
// string, which the validators then reject.
//
//   - Phone numbers: E.164 via libphonenumber, "" when unparseable
//   - Emails: trimmed and lower-cased
//   - Names: whitespace collapsed, case preserved
//   - Subjects: whitespace collapsed and lower-cased so filters match reliably
package sanitizer

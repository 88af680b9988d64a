// Package compare decides whether a message retrieved from the broker matches
// the pre-recorded expected output.
//
// # Formats
//
// Each output message is compared according to a format tag:
//
//   - plain: byte-for-byte, rendered as a unified diff on mismatch
//   - xml: both sides are pretty-printed first, so indentation and
//     whitespace-only text nodes do not matter
//   - usrxml-dataxml, usrxml-dataplain, usrplain-dataxml: the first line of
//     the message carries a serialized header embedding a user-properties
//     block. The block ("usr") and the remainder ("data") are split apart by
//     SplitHeader and compared independently, each with its own sub-format.
//
// # Ignored elements
//
// XML comparisons may ignore volatile elements (timestamps, host names). Any
// canonical line holding an opening tag of an ignored element is dropped from
// both sides before diffing.
//
// # Outcomes
//
// Compare never fails: a missing expected file, a malformed document or a
// difference are all reported as an Outcome. Diffs are also written to the
// configured DiffSink so they end up in the run log.
package compare

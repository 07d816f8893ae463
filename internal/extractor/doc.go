// Package extractor applies selector rules to fetched documents and produces
// structured records.
//
// The extractor is a generic rule interpreter: it carries no per-site or
// per-type knowledge. Everything it does is driven by the
// model.SelectorRule values handed to Extract, so the same code path serves
// default rule sets, user-supplied rules, and the link rule used by keyword
// search expansion.
//
// Extraction is a pure function of its inputs: the same document and rule
// set always produce an identical record. There is no network I/O and no
// shared mutable state, so a single Extractor is safe for concurrent use
// by every crawl worker.
//
// Error model: only an unparsable document fails a whole record
// (ParseFailure). Per-field problems, like a number transform on text with
// no digits, are absorbed: the field is left absent, the problem is logged
// at debug level, and the rest of the record survives.
package extractor

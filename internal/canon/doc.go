// Package canon produces canonical JSON and content fingerprints.
//
// Canonical JSON follows RFC 8785 for the value shapes headpose needs:
// object keys sorted by UTF-16 code units, no insignificant whitespace,
// strings NFC-normalized and escaped only where JSON requires it. Floats and
// null are rejected so that the same input always yields the same bytes;
// callers convert measurements to integer units first.
//
// Golden trace files and run-config fingerprints are built on it.
package canon

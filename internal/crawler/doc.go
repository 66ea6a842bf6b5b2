// Package crawler implements the same-domain site crawler used to collect a
// business website's visible text: URL canonicalization, HTML text and link
// extraction, and the depth- and page-bounded traversal engine.
package crawler

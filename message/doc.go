// Package message defines the canonical email record returned by every
// provider and normalizes raw RFC 822 streams into it.
//
// Normalization picks the first text/plain part as the body and falls back to
// text/html when no plain part exists. The body is cut to BodyPreviewLen
// characters and the snippet to SnippetLen. Mail in legacy Chinese encodings
// (GBK, GB18030, Big5) is decoded through the go-message charset table.
package message

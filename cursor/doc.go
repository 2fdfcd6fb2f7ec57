// Package cursor turns store continuation keys into opaque string tokens that
// can be handed to API clients and passed back verbatim to fetch the next
// page. Tokens are the MessagePack encoding of the key's wire form, in
// unpadded base64url.
package cursor

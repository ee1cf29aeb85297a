// Package services implements the collaborators the core treats as external: the call [Transport], the
// [SessionProvider] and the upload [FileSource].
//
// # Transport
//
// [HTTPTransport] maps each [OpKind] onto the JSON proxy through the [Routes] table. Path wildcards are filled
// from the call's parameters; GET and DELETE send the rest as a query string, other methods as a JSON body,
// and uploads as multipart form data. The transport never interprets status codes or envelopes: every
// response the service produced is returned as a [RawResponse] and classification is left to the dispatcher.
//
// # Sessions
//
// Session establishment is out of scope. Two providers wrap credentials obtained elsewhere:
//   - [CookieSession] : headers and cookies lifted from a browser "Copy as cURL" capture
//   - [TokenSession] : bearer tokens from any [oauth2.TokenSource]
//
// Providers are read-shared by concurrent calls and are never mutated by the core.
//
// # Files
//
// [LocalFile] reads uploads from disk and can report their embedded tags using the track record field names.
package services

// Package credentials locates the Tibber access token.
//
// Sources are tried in order: an explicit token (TIBBER_TOKEN), the
// credentials file, and finally a prompt on the controlling terminal. A
// token entered at the prompt is saved to the credentials file so the
// container only asks once.
//
// The credentials file holds the bare token on its first non-comment line,
// or a "token = <value>" / "tibber_token: <value>" line.
package credentials

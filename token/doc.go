// Package token manages issuance and verification of both token shapes:
// short-lived access tokens with strict claims validation, and the signed
// refresh envelope whose lifecycle state is owned by the record store.
package token

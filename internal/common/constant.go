package common

// AuthorizationHeader carries the bearer token on requests to the record
// store.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token in AuthorizationHeader.
const BearerPrefix = "Bearer "

package common

// AuthorizationHeaderName carries the bearer access token on API requests.
const AuthorizationHeaderName = "Authorization"

// Collection names, shared between the client cache keys and the remote
// document tree. Products are global; the rest live under users/{uid}.
const (
	CollectionAllergies = "allergies"
	CollectionRecords   = "records"
	CollectionProducts  = "products"
	CollectionHistory   = "history"
)

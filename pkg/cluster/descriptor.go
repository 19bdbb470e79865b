package cluster

import "fmt"

// Descriptor identifies a remote cluster: the address of its API server and
// the name of the Secret holding the credentials used to reach it.
// A Descriptor is immutable once built and safe for concurrent use.
type Descriptor struct {
	endpoint      string
	credentialRef string
}

// NewDescriptor builds a Descriptor from an API endpoint and a credential
// Secret name. Values are stored as given; callers are responsible for
// validating them.
func NewDescriptor(endpoint, credentialRef string) Descriptor {
	return Descriptor{
		endpoint:      endpoint,
		credentialRef: credentialRef,
	}
}

// Endpoint returns the API server address of the cluster
func (d Descriptor) Endpoint() string {
	return d.endpoint
}

// CredentialRef returns the name of the Secret holding the cluster credentials
func (d Descriptor) CredentialRef() string {
	return d.credentialRef
}

// Equal reports whether both descriptors point at the same endpoint with the
// same credential reference.
func (d Descriptor) Equal(other Descriptor) bool {
	return d == other
}

// String only prints the Secret name, never credential material.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s (credentials: %s)", d.endpoint, d.credentialRef)
}

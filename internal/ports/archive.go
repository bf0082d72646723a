package ports

import "context"

// Locator points at one stored artifact: the storage key plus a browsable
// link included in error messages and status updates for diagnosis.
type Locator struct {
	Key  string
	Link string
}

// Archive stores every intermediate artifact of an invocation for audit and
// replay. Implementations group artifacts under a prefix derived from the
// topic, the UTC date, and the message ID.
type Archive interface {
	// Store writes content under the invocation's prefix using the logical
	// name; the content type is inferred from the name's extension.
	Store(ctx context.Context, content []byte, name string) (Locator, error)
}

// Artifact is one named archived payload.
type Artifact struct {
	Name string
	Body []byte
}

package middleware

// IsOwner reports whether actorID is the configured owner, who bypasses
// rate limits.
func IsOwner(actorID, ownerActorID string) bool {
	return ownerActorID != "" && actorID == ownerActorID
}

package domain

// EventType is the closed vocabulary of audit event types. Status codes and
// downstream consumers key off these values; never infer outcomes from
// free-text context.
type EventType string

// Secret lifecycle events. Each operation has a success type and a failure
// type so that every code path terminates in exactly one event.
const (
	SecretCreated        EventType = "secret_created"
	SecretCreateFailed   EventType = "secret_create_failed"
	SecretRevealed       EventType = "secret_revealed"
	SecretRevealFailed   EventType = "secret_reveal_failed"
	SecretUpdated        EventType = "secret_updated"
	SecretUpdateFailed   EventType = "secret_update_failed"
	SecretDeleted        EventType = "secret_deleted"
	SecretDeleteFailed   EventType = "secret_delete_failed"
	SecretMetadataViewed EventType = "secret_metadata_viewed"
	SecretMetadataFailed EventType = "secret_metadata_failed"
	SecretListed         EventType = "secret_listed"
	SecretListFailed     EventType = "secret_list_failed"
	SecretSearched       EventType = "secret_searched"
	SecretSearchFailed   EventType = "secret_search_failed"
)

// IsValid reports whether t belongs to the closed vocabulary.
func (t EventType) IsValid() bool {
	switch t {
	case SecretCreated, SecretCreateFailed,
		SecretRevealed, SecretRevealFailed,
		SecretUpdated, SecretUpdateFailed,
		SecretDeleted, SecretDeleteFailed,
		SecretMetadataViewed, SecretMetadataFailed,
		SecretListed, SecretListFailed,
		SecretSearched, SecretSearchFailed:
		return true
	}
	return false
}

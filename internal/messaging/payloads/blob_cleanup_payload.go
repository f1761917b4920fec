package payloads

// BlobCleanupPayload asks the worker to delete blobs that no stored record
// references any more.
type BlobCleanupPayload struct {
	PublicIDs []string `json:"public_ids"`
	Reason    string   `json:"reason"`
}

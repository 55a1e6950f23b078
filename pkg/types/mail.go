package types

import "time"

// ProviderName identifies one of the supported mail providers
type ProviderName string

const (
	ProviderGmail   ProviderName = "gmail"
	ProviderOutlook ProviderName = "outlook"
)

// Category is the classification assigned to an inbound message
type Category string

const (
	CategoryInterested    Category = "Interested"
	CategoryNotInterested Category = "Not Interested"
	CategoryMoreInfo      Category = "For More Information"
	CategoryUncategorized Category = "Uncategorized"
)

// Credentials is the opaque token bundle captured from an OAuth exchange.
// One bundle per provider; replaced wholesale on each callback.
type Credentials struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// MessageCandidate references an inbound message discovered during polling
type MessageCandidate struct {
	ID         string       `json:"id"`
	Provider   ProviderName `json:"provider"`
	ReceivedAt time.Time    `json:"received_at"`
}

// MessageDetail is the fetched body and metadata for one candidate
type MessageDetail struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Content    string    `json:"content"`
	ReceivedAt time.Time `json:"received_at"`
}

// ReplyJob is a queued unit of work: process the current candidate set
// for one provider. Candidates are re-listed by the worker rather than
// carried in the job payload.
type ReplyJob struct {
	ID         string       `json:"id"`
	Provider   ProviderName `json:"provider"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}

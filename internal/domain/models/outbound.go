package models

// AlertRecipient is an address that receives low-stock emails.
type AlertRecipient struct {
	ID      string           `bson:"_id" json:"id"`
	Email   string           `bson:"email" json:"email"`
	Enabled bool             `bson:"enabled" json:"enabled"`
	Profile RecipientProfile `bson:"profile" json:"profile"`
}

// RecipientProfile holds the display data for a recipient.
type RecipientProfile struct {
	FullName string `bson:"full_name" json:"full_name"`
}

// EmailMessage is a single transactional email. All addresses in To receive
// the same message.
type EmailMessage struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

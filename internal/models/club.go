package models

import "time"

// Club is a tenant of the platform.
type Club struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	WhatsAppChannel *string   `db:"whatsapp_channel" json:"whatsapp_channel,omitempty"`
	Timezone        string    `db:"timezone" json:"timezone"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

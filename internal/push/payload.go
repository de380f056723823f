// Package push delivers notification payloads to Web Push endpoints and
// classifies delivery outcomes. Encryption and the push protocol itself are
// delegated to the webpush library; this package owns outcome semantics:
// success, transient failure, or a permanently gone endpoint.
package push

import "encoding/json"

// Payload is the notification content sent through the push transport.
// Data.URL is the deep-link target the client opens when the notification
// is tapped.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Icon  string      `json:"icon,omitempty"`
	Data  PayloadData `json:"data"`
}

// PayloadData carries the client-side routing information of a payload.
type PayloadData struct {
	URL string `json:"url"`
}

// Marshal encodes the payload as the JSON document the push transport
// carries.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

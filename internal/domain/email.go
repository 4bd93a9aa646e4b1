package domain

// Email is an outbound message. At least one of Text or HTML is set.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

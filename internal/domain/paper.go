package domain

// Paper is the normalized unit of output extracted from the upstream feed.
// Every field is always a plain string; data absent upstream maps to the
// empty string, never to a missing field, so rendering needs no nil checks.
type Paper struct {
	Title    string
	Authors  string
	Abstract string
	URL      string
}

// Digest pairs a calendar date (YYYY-MM-DD) with the papers published on it.
// Built fresh per run and discarded once the email is handed off.
type Digest struct {
	Date   string
	Papers []Paper
}

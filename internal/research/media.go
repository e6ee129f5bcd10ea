package research

// Media carries the non-text artifacts attached to a completed answer.
type Media struct {
	Images []string `json:"images,omitempty"`
	Links  []Link   `json:"links,omitempty"`
}

// Link is a titled URL.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

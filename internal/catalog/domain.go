// internal/catalog/domain.go
package catalog

// Enquiry is the short availability answer for a single book.
type Enquiry struct {
	BookID    string `json:"book_id"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// BookStatus is the detailed view of a book, including who holds it.
type BookStatus struct {
	BookID    string `json:"book_id"`
	BookName  string `json:"book_name"`
	Available bool   `json:"available"`
	HeldBy    string `json:"held_by,omitempty"`
	DueOn     string `json:"due_on,omitempty"`
}

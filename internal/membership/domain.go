// internal/membership/domain.go
package membership

// Registration is the input to Register.
type Registration struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Password    string `json:"password,omitempty"`
}

// EntryRequest is the input to Entry. An unknown student with a name is
// registered on the spot as a walk-in.
type EntryRequest struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	LibrarianID string `json:"librarian_id"`
	Password    string `json:"password,omitempty"`
}

// Package seed holds the catalog loaded at startup.
package seed

import (
	"fmt"

	"librarydesk/internal/domain"
	"librarydesk/internal/store"
)

var Students = []domain.Student{
	{ID: "S001", Name: "Mounika"},
	{ID: "S002", Name: "Ravi"},
	{ID: "S003", Name: "Anjali"},
	{ID: "S004", Name: "Karthik"},
	{ID: "S005", Name: "Priya"},
	{ID: "S006", Name: "Arjun"},
	{ID: "S007", Name: "Sneha"},
	{ID: "S008", Name: "Vikram"},
	{ID: "S009", Name: "Meera"},
	{ID: "S010", Name: "Rahul"},
}

var Books = []domain.Book{
	{ID: "B101", Name: "Python Basics", Available: true},
	{ID: "B102", Name: "Flask Web Dev", Available: true},
	{ID: "B103", Name: "Data Science 101", Available: true},
	{ID: "B104", Name: "Machine Learning", Available: true},
	{ID: "B105", Name: "Deep Learning", Available: true},
	{ID: "B106", Name: "Algorithms", Available: true},
	{ID: "B107", Name: "Networking Basics", Available: true},
	{ID: "B108", Name: "Database Design", Available: true},
	{ID: "B109", Name: "Operating Systems", Available: true},
	{ID: "B110", Name: "Electronics Fundamentals", Available: true},
}

var Librarians = []domain.Librarian{
	{ID: "L001", Name: "Ramesh", Role: domain.DefaultLibrarianRole},
	{ID: "L002", Name: "Suresh", Role: domain.DefaultLibrarianRole},
	{ID: "L003", Name: "Geetha", Role: domain.DefaultLibrarianRole},
}

// Load inserts the seed catalog into st.
func Load(st *store.Store) error {
	return st.Update(func(tx *store.Tx) error {
		for _, s := range Students {
			if err := tx.AddStudent(s); err != nil {
				return fmt.Errorf("seed student: %w", err)
			}
		}
		for _, b := range Books {
			if err := tx.AddBook(b); err != nil {
				return fmt.Errorf("seed book: %w", err)
			}
		}
		for _, l := range Librarians {
			if err := tx.AddLibrarian(l); err != nil {
				return fmt.Errorf("seed librarian: %w", err)
			}
		}
		return nil
	})
}

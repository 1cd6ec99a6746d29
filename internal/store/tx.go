// internal/store/tx.go
package store

import (
	"errors"

	"librarydesk/internal/domain"
)

// ErrReadOnly is returned when a mutation is attempted inside View.
var ErrReadOnly = errors.New("store: write in read-only transaction")

// Tx is the handle passed to Update and View callbacks. Pointers returned
// by a Tx must not escape the callback; copy what you need.
type Tx struct {
	s        *Store
	writable bool
}

func (tx *Tx) checkWritable() error {
	if !tx.writable {
		return ErrReadOnly
	}
	return nil
}

// Student returns the live student record for id.
func (tx *Tx) Student(id string) (*domain.Student, error) {
	st, ok := tx.s.students.get(id)
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "student %s not found", id)
	}
	return st, nil
}

// AddStudent inserts a new student. The borrowed-book list is initialised
// to empty when nil.
func (tx *Tx) AddStudent(st domain.Student) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if st.BorrowedBooks == nil {
		st.BorrowedBooks = []domain.BorrowRecord{}
	}
	if !tx.s.students.add(st.ID, &st) {
		return domain.Errorf(domain.ErrAlreadyExists, "student %s already exists", st.ID)
	}
	return nil
}

// RemoveStudent deletes the student and its embedded borrow records. A
// student still holding a Borrowed book cannot be removed, since the book
// would stay unavailable with no loan left to return.
func (tx *Tx) RemoveStudent(id string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	st, ok := tx.s.students.get(id)
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "student %s not found", id)
	}
	for _, r := range st.BorrowedBooks {
		if r.Status == domain.StatusBorrowed {
			return domain.Errorf(domain.ErrInUse, "student %s holds borrowed books", id)
		}
	}
	tx.s.students.remove(id)
	return nil
}

// Students calls fn for every student in insertion order.
func (tx *Tx) Students(fn func(*domain.Student)) {
	tx.s.students.each(fn)
}

// StudentCount returns the number of registered students.
func (tx *Tx) StudentCount() int {
	return tx.s.students.len()
}

// Book returns the live book record for id.
func (tx *Tx) Book(id string) (*domain.Book, error) {
	b, ok := tx.s.books.get(id)
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "book %s not found", id)
	}
	return b, nil
}

// AddBook inserts a new book.
func (tx *Tx) AddBook(b domain.Book) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if !tx.s.books.add(b.ID, &b) {
		return domain.Errorf(domain.ErrAlreadyExists, "book %s already exists", b.ID)
	}
	return nil
}

// RemoveBook deletes a book unless some student still holds it.
func (tx *Tx) RemoveBook(id string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if _, ok := tx.s.books.get(id); !ok {
		return domain.Errorf(domain.ErrNotFound, "book %s not found", id)
	}
	if tx.BookBorrowed(id) {
		return domain.Errorf(domain.ErrInUse, "book %s is currently borrowed", id)
	}
	tx.s.books.remove(id)
	return nil
}

// Books calls fn for every book in insertion order.
func (tx *Tx) Books(fn func(*domain.Book)) {
	tx.s.books.each(fn)
}

// BookBorrowed reports whether any student holds a Borrowed record for
// the book. It scans every student's list.
func (tx *Tx) BookBorrowed(bookID string) bool {
	borrowed := false
	tx.s.students.each(func(st *domain.Student) {
		if borrowed {
			return
		}
		for _, r := range st.BorrowedBooks {
			if r.BookID == bookID && r.Status == domain.StatusBorrowed {
				borrowed = true
				return
			}
		}
	})
	return borrowed
}

// Librarian returns the live librarian record for id.
func (tx *Tx) Librarian(id string) (*domain.Librarian, error) {
	l, ok := tx.s.librarians.get(id)
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "librarian %s not found", id)
	}
	return l, nil
}

// AddLibrarian inserts a new librarian.
func (tx *Tx) AddLibrarian(l domain.Librarian) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if !tx.s.librarians.add(l.ID, &l) {
		return domain.Errorf(domain.ErrAlreadyExists, "librarian %s already exists", l.ID)
	}
	return nil
}

// RemoveLibrarian deletes a librarian.
func (tx *Tx) RemoveLibrarian(id string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if !tx.s.librarians.remove(id) {
		return domain.Errorf(domain.ErrNotFound, "librarian %s not found", id)
	}
	return nil
}

// Librarians calls fn for every librarian in insertion order.
func (tx *Tx) Librarians(fn func(*domain.Librarian)) {
	tx.s.librarians.each(fn)
}

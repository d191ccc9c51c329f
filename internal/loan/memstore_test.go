package loan

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// memStore is an in-memory Store. Transactions are serialized and rolled
// back when fn fails, which is what row locks give the Postgres store for a
// single book.
type memStore struct {
	mu         sync.Mutex
	books      map[int64]Stock
	readers    map[int64]bool
	categories map[int64]bool
	loans      map[int64]Loan
	nextID     int64

	failSetCopies error
}

func newMemStore() *memStore {
	return &memStore{
		books:      make(map[int64]Stock),
		readers:    make(map[int64]bool),
		categories: make(map[int64]bool),
		loans:      make(map[int64]Loan),
	}
}

func (m *memStore) addBook(id int64, total, available int) {
	m.books[id] = Stock{BookID: id, CopiesTotal: total, CopiesAvailable: available}
}

func (m *memStore) stock(id int64) Stock {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id]
}

func (m *memStore) loan(id int64) (Loan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	return l, ok
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	books, loans, next := maps.Clone(m.books), maps.Clone(m.loans), m.nextID
	if err := fn(ctx, memTx{m}); err != nil {
		m.books, m.loans, m.nextID = books, loans, next
		return err
	}
	return nil
}

func (m *memStore) List(context.Context) ([]WithDetails, error) {
	return m.filter(func(Loan) bool { return true }), nil
}

func (m *memStore) ListActive(context.Context) ([]WithDetails, error) {
	return m.filter(func(l Loan) bool { return l.Status == StatusActive }), nil
}

func (m *memStore) ListOverdue(_ context.Context, now time.Time) ([]WithDetails, error) {
	return m.filter(func(l Loan) bool {
		return l.Status == StatusActive && l.ReturnDate.Before(now)
	}), nil
}

func (m *memStore) filter(keep func(Loan) bool) []WithDetails {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]WithDetails, 0)
	for _, l := range m.loans {
		if keep(l) {
			out = append(out, WithDetails{Loan: l, Title: fmt.Sprintf("Book %d", l.BookID)})
		}
	}
	slices.SortFunc(out, func(a, b WithDetails) int {
		if c := b.LoanDate.Compare(a.LoanDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (m *memStore) GetByID(_ context.Context, id int64) (Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok {
		return Loan{}, ErrNotFound
	}
	return l, nil
}

type memTx struct {
	m *memStore
}

func (t memTx) LockLoan(_ context.Context, id int64) (Loan, error) {
	l, ok := t.m.loans[id]
	if !ok {
		return Loan{}, ErrNotFound
	}
	return l, nil
}

func (t memTx) LockBook(_ context.Context, id int64) (Stock, error) {
	st, ok := t.m.books[id]
	if !ok {
		return Stock{}, ErrBookNotFound
	}
	return st, nil
}

func (t memTx) ReaderExists(_ context.Context, id int64) (bool, error) {
	return t.m.readers[id], nil
}

func (t memTx) CategoryExists(_ context.Context, id int64) (bool, error) {
	return t.m.categories[id], nil
}

func (t memTx) Insert(_ context.Context, l *Loan) error {
	t.m.nextID++
	l.ID = t.m.nextID
	l.CreatedAt = time.Now()
	t.m.loans[l.ID] = *l
	return nil
}

func (t memTx) Update(_ context.Context, id int64, patch Patch) (Loan, error) {
	l, ok := t.m.loans[id]
	if !ok {
		return Loan{}, ErrNotFound
	}
	l = patch.Apply(l)
	t.m.loans[id] = l
	return l, nil
}

func (t memTx) Delete(_ context.Context, id int64) error {
	if _, ok := t.m.loans[id]; !ok {
		return ErrNotFound
	}
	delete(t.m.loans, id)
	return nil
}

// SetCopiesAvailable enforces the same bounds as the books table CHECK.
func (t memTx) SetCopiesAvailable(_ context.Context, bookID int64, n int) error {
	if t.m.failSetCopies != nil {
		return t.m.failSetCopies
	}
	st, ok := t.m.books[bookID]
	if !ok {
		return ErrBookNotFound
	}
	if n < 0 || n > st.CopiesTotal {
		return fmt.Errorf("copies_available %d outside [0, %d]", n, st.CopiesTotal)
	}
	st.CopiesAvailable = n
	t.m.books[bookID] = st
	return nil
}

package loan

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"libraryapi/internal/apperr"
	"libraryapi/internal/validator"
)

const DefaultLoanPeriod = 30 * 24 * time.Hour

// Service runs the loan lifecycle. Every change that moves a copy of a book
// in or out of circulation is written in the same transaction as the loan.
type Service struct {
	store      Store
	rules      *validator.Engine
	loanPeriod time.Duration
	tracer     trace.Tracer
}

// NewService creates a loan service. A non-positive loanPeriod falls back to
// DefaultLoanPeriod.
func NewService(store Store, rules *validator.Engine, loanPeriod time.Duration) *Service {
	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriod
	}
	return &Service{
		store:      store,
		rules:      rules,
		loanPeriod: loanPeriod,
		tracer:     otel.Tracer("libraryapi/loan"),
	}
}

func (s *Service) now() time.Time {
	return s.rules.Rules().Now()
}

// List returns every loan with display fields, newest first.
func (s *Service) List(ctx context.Context) ([]WithDetails, error) {
	return s.store.List(ctx)
}

func (s *Service) Active(ctx context.Context) ([]WithDetails, error) {
	return s.store.ListActive(ctx)
}

// Overdue returns active loans past their planned return date. The stored
// status is not consulted beyond being active.
func (s *Service) Overdue(ctx context.Context) ([]WithDetails, error) {
	return s.store.ListOverdue(ctx, s.now())
}

func (s *Service) Get(ctx context.Context, id int64) (Loan, error) {
	return s.store.GetByID(ctx, id)
}

// Create registers a loan. The book must have a free copy; when the new loan
// holds a copy, that copy is taken in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (Loan, error) {
	ctx, span := s.tracer.Start(ctx, "loan.create", trace.WithAttributes(
		attribute.Int64("book.id", in.BookID),
		attribute.Int64("reader.id", in.ReaderID),
	))
	defer span.End()

	l, err := s.newLoan(in)
	if err != nil {
		return Loan{}, fail(span, err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		stock, err := tx.LockBook(ctx, l.BookID)
		if err != nil {
			return err
		}
		if stock.CopiesAvailable <= 0 {
			return ErrBookUnavailable
		}
		if err := mustExist(ctx, tx.ReaderExists, l.ReaderID, ErrReaderNotFound); err != nil {
			return err
		}
		if err := mustExist(ctx, tx.CategoryExists, l.CategoryID, ErrCategoryNotFound); err != nil {
			return err
		}

		if err := tx.Insert(ctx, &l); err != nil {
			return err
		}
		if !l.Status.HoldsCopy() {
			return nil
		}
		if err := stock.acquire(); err != nil {
			return err
		}
		return tx.SetCopiesAvailable(ctx, stock.BookID, stock.CopiesAvailable)
	})
	if err != nil {
		return Loan{}, fail(span, err)
	}
	span.SetAttributes(attribute.Int64("loan.id", l.ID))
	return l, nil
}

// Update applies a partial change to a loan. Date ordering is checked on the
// stored loan with the change applied. Copies move as follows: leaving a
// holding status releases one, entering it takes one, and moving a holding
// loan to another book does both.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Loan, error) {
	ctx, span := s.tracer.Start(ctx, "loan.update", trace.WithAttributes(attribute.Int64("loan.id", id)))
	defer span.End()

	v := validator.New()
	s.rules.Struct(v, in)
	patch := s.parsePatch(v, in)

	var updated Loan
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.LockLoan(ctx, id)
		if err != nil {
			return err
		}

		p := patch
		if p.Status != nil && *p.Status == StatusReturned && current.Status != StatusReturned &&
			p.ActualReturnDate == nil && !p.ClearActualReturnDate && current.ActualReturnDate == nil {
			now := s.now()
			p.ActualReturnDate = &now
		}
		merged := p.Apply(current)

		if v.FieldValid("loan_date") && v.FieldValid("return_date") {
			v.Check(merged.ReturnDate.After(merged.LoanDate), "return_date", msgReturnBeforeLoan)
		}
		if err := v.Err(); err != nil {
			return err
		}

		if p.ReaderID != nil && *p.ReaderID != current.ReaderID {
			if err := mustExist(ctx, tx.ReaderExists, *p.ReaderID, ErrReaderNotFound); err != nil {
				return err
			}
		}
		if p.CategoryID != nil && *p.CategoryID != current.CategoryID {
			if err := mustExist(ctx, tx.CategoryExists, *p.CategoryID, ErrCategoryNotFound); err != nil {
				return err
			}
		}
		if err := moveCopies(ctx, tx, current, merged); err != nil {
			return err
		}

		if p.Empty() {
			updated = current
			return nil
		}
		updated, err = tx.Update(ctx, id, p)
		return err
	})
	if err != nil {
		return Loan{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("loan.status", string(updated.Status)))
	return updated, nil
}

// Delete removes a loan, first putting its copy back when it holds one.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "loan.delete", trace.WithAttributes(attribute.Int64("loan.id", id)))
	defer span.End()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.LockLoan(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.HoldsCopy() {
			stock, err := tx.LockBook(ctx, current.BookID)
			if err != nil {
				return err
			}
			stock.release()
			if err := tx.SetCopiesAvailable(ctx, stock.BookID, stock.CopiesAvailable); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, id)
	})
	return fail(span, err)
}

func (s *Service) newLoan(in CreateInput) (Loan, error) {
	v := validator.New()
	s.rules.Struct(v, in)

	l := Loan{
		BookID:     in.BookID,
		ReaderID:   in.ReaderID,
		CategoryID: in.CategoryID,
		LoanDate:   s.now(),
		FineAmount: in.FineAmount,
		Status:     StatusActive,
	}
	if in.Status != nil {
		if st, ok := ParseStatus(*in.Status); ok {
			l.Status = st
		} else {
			v.AddError("status", msgInvalidStatus)
		}
	}
	if t, ok := parseDateField(v, "loan_date", in.LoanDate); ok {
		l.LoanDate = t
	}
	l.ReturnDate = l.LoanDate.Add(s.loanPeriod)
	if t, ok := parseDateField(v, "return_date", in.ReturnDate); ok {
		l.ReturnDate = t
	}
	if t, ok := parseDateField(v, "actual_return_date", in.ActualReturnDate); ok {
		l.ActualReturnDate = &t
	}
	if v.FieldValid("loan_date") && v.FieldValid("return_date") {
		v.Check(l.ReturnDate.After(l.LoanDate), "return_date", msgReturnBeforeLoan)
	}
	return l, v.Err()
}

func (s *Service) parsePatch(v *validator.Validator, in UpdateInput) Patch {
	p := Patch{
		BookID:     in.BookID,
		ReaderID:   in.ReaderID,
		CategoryID: in.CategoryID,
		FineAmount: in.FineAmount,
	}
	if in.Status != nil {
		if st, ok := ParseStatus(*in.Status); ok {
			p.Status = &st
		} else {
			v.AddError("status", msgInvalidStatus)
		}
	}
	if t, ok := parseDateField(v, "loan_date", in.LoanDate); ok {
		p.LoanDate = &t
	}
	if t, ok := parseDateField(v, "return_date", in.ReturnDate); ok {
		p.ReturnDate = &t
	}
	if in.ActualReturnDate != nil && validator.Optional(in.ActualReturnDate) == nil {
		p.ClearActualReturnDate = true
	} else if t, ok := parseDateField(v, "actual_return_date", in.ActualReturnDate); ok {
		p.ActualReturnDate = &t
	}
	return p
}

// parseDateField parses an optional date input. Blank input counts as absent.
func parseDateField(v *validator.Validator, key string, raw *string) (time.Time, bool) {
	raw = validator.Optional(raw)
	if raw == nil {
		return time.Time{}, false
	}
	t, err := ParseDate(*raw)
	if err != nil {
		v.AddError(key, msgInvalidDate)
		return time.Time{}, false
	}
	return t, true
}

// moveCopies locks the books touched by a change from before to after, in
// ascending id order, and writes their new availability.
func moveCopies(ctx context.Context, tx Tx, before, after Loan) error {
	bookChanged := before.BookID != after.BookID
	release := before.Status.HoldsCopy() && (bookChanged || !after.Status.HoldsCopy())
	acquire := after.Status.HoldsCopy() && (bookChanged || !before.Status.HoldsCopy())

	var ids []int64
	if release {
		ids = append(ids, before.BookID)
	}
	if acquire || bookChanged {
		ids = append(ids, after.BookID)
	}
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	stocks := make(map[int64]*Stock, len(ids))
	for _, id := range ids {
		st, err := tx.LockBook(ctx, id)
		if err != nil {
			return err
		}
		stocks[id] = &st
	}

	if release {
		stocks[before.BookID].release()
	}
	if acquire {
		if err := stocks[after.BookID].acquire(); err != nil {
			return err
		}
	}

	for _, id := range ids {
		if (release && id == before.BookID) || (acquire && id == after.BookID) {
			if err := tx.SetCopiesAvailable(ctx, id, stocks[id].CopiesAvailable); err != nil {
				return err
			}
		}
	}
	return nil
}

func mustExist(ctx context.Context, exists func(context.Context, int64) (bool, error), id int64, notFound error) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}

// fail records err on span and returns it. Classified errors are expected
// outcomes and leave the span status untouched.
func fail(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Package firestore implements the ledger store on Google Cloud
// Firestore. Records live in per-user subcollections
// (users/{uid}/expenses, users/{uid}/owed, ...), and batch commits use a
// Firestore WriteBatch so multi-record writes land atomically.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const (
	colExpenses  = "expenses"
	colOwed      = "owed"
	colOwedToMe  = "owedToMe"
	colRecurring = "recurring"
	colBudgets   = "budgets"
)

type Store struct {
	client *firestore.Client
}

var _ ledger.Store = (*Store)(nil)

// New connects to Firestore. credentialsFile may be empty, in which case
// application default credentials are used.
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) col(userID, name string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection(name)
}

// Document shapes. Kept separate from the core types so Firestore field
// names stay stable if the domain structs evolve.

type expenseDoc struct {
	Category            string    `firestore:"category"`
	AmountCents         int64     `firestore:"amountCents"`
	Description         string    `firestore:"description"`
	Date                time.Time `firestore:"date"`
	RepaymentPerson     string    `firestore:"repaymentPerson,omitempty"`
	RepaymentOriginal   string    `firestore:"repaymentOriginal,omitempty"`
	RepaymentSettlement bool      `firestore:"isRepayment"`
}

type owedDoc struct {
	Person      string    `firestore:"person"`
	AmountCents int64     `firestore:"amountCents"`
	Description string    `firestore:"description"`
	Date        time.Time `firestore:"date"`
	Paid        bool      `firestore:"paid"`
}

type owedToMeDoc struct {
	Person      string    `firestore:"person"`
	AmountCents int64     `firestore:"amountCents"`
	Description string    `firestore:"description"`
	Date        time.Time `firestore:"date"`
	Received    bool      `firestore:"received"`
}

type recurringDoc struct {
	Category    string    `firestore:"category"`
	AmountCents int64     `firestore:"amountCents"`
	Description string    `firestore:"description"`
	Frequency   string    `firestore:"frequency"`
	StartDate   time.Time `firestore:"startDate"`
	NextDueDate time.Time `firestore:"nextDueDate"`
}

type budgetDoc struct {
	ScopeKind     string `firestore:"scopeKind"`
	ScopeCategory string `firestore:"scopeCategory,omitempty"`
	AmountCents   int64  `firestore:"amountCents"`
	Month         string `firestore:"month"`
}

func toExpenseDoc(e core.Expense) expenseDoc {
	doc := expenseDoc{
		Category:    e.Category,
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		Date:        e.Date,
	}
	if e.Repayment != nil {
		doc.RepaymentSettlement = true
		doc.RepaymentPerson = e.Repayment.Person
		doc.RepaymentOriginal = e.Repayment.OriginalDescription
	}
	return doc
}

func fromExpenseDoc(userID, id string, doc expenseDoc) core.Expense {
	e := core.Expense{
		ID:          id,
		UserID:      userID,
		Category:    doc.Category,
		Amount:      core.Cents(doc.AmountCents),
		Description: doc.Description,
		Date:        doc.Date,
	}
	if doc.RepaymentSettlement {
		e.Repayment = &core.RepaymentDetails{
			Person:              doc.RepaymentPerson,
			OriginalDescription: doc.RepaymentOriginal,
		}
	}
	return e
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if _, err := s.col(e.UserID, colExpenses).Doc(e.ID).Set(ctx, toExpenseDoc(e)); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.deleteDoc(ctx, s.col(userID, colExpenses).Doc(id))
}

// deleteDoc checks existence first: Firestore deletes are blind upserts and
// would otherwise succeed on missing documents.
func (s *Store) deleteDoc(ctx context.Context, ref *firestore.DocumentRef) error {
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return ledger.ErrNotFound
		}
		return fmt.Errorf("get %s: %w", ref.ID, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", ref.ID, err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string, from, to *time.Time) ([]core.Expense, error) {
	q := s.col(userID, colExpenses).Query
	if from != nil {
		q = q.Where("date", ">=", *from)
	}
	if to != nil {
		q = q.Where("date", "<=", *to)
	}
	q = q.OrderBy("date", firestore.Desc)

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(snaps))
	for _, snap := range snaps {
		var doc expenseDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode expense %s: %w", snap.Ref.ID, err)
		}
		out = append(out, fromExpenseDoc(userID, snap.Ref.ID, doc))
	}
	return out, nil
}

func (s *Store) CreateOwed(ctx context.Context, o core.OwedAmount) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	doc := owedDoc{Person: o.Person, AmountCents: o.Amount.Cents, Description: o.Description, Date: o.Date, Paid: o.Paid}
	if _, err := s.col(o.UserID, colOwed).Doc(o.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("create owed amount: %w", err)
	}
	return nil
}

func (s *Store) GetOwed(ctx context.Context, userID, id string) (core.OwedAmount, error) {
	snap, err := s.col(userID, colOwed).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return core.OwedAmount{}, ledger.ErrNotFound
		}
		return core.OwedAmount{}, fmt.Errorf("get owed amount: %w", err)
	}
	var doc owedDoc
	if err := snap.DataTo(&doc); err != nil {
		return core.OwedAmount{}, fmt.Errorf("decode owed amount: %w", err)
	}
	return core.OwedAmount{
		ID: id, UserID: userID, Person: doc.Person,
		Amount: core.Cents(doc.AmountCents), Description: doc.Description,
		Date: doc.Date, Paid: doc.Paid,
	}, nil
}

func (s *Store) DeleteOwed(ctx context.Context, userID, id string) error {
	return s.deleteDoc(ctx, s.col(userID, colOwed).Doc(id))
}

func (s *Store) ListOwed(ctx context.Context, userID string) ([]core.OwedAmount, error) {
	snaps, err := s.col(userID, colOwed).OrderBy("date", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list owed amounts: %w", err)
	}
	out := make([]core.OwedAmount, 0, len(snaps))
	for _, snap := range snaps {
		var doc owedDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode owed amount %s: %w", snap.Ref.ID, err)
		}
		out = append(out, core.OwedAmount{
			ID: snap.Ref.ID, UserID: userID, Person: doc.Person,
			Amount: core.Cents(doc.AmountCents), Description: doc.Description,
			Date: doc.Date, Paid: doc.Paid,
		})
	}
	return out, nil
}

func (s *Store) CreateOwedToMe(ctx context.Context, o core.OwedToMe) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	doc := owedToMeDoc{Person: o.Person, AmountCents: o.Amount.Cents, Description: o.Description, Date: o.Date, Received: o.Received}
	if _, err := s.col(o.UserID, colOwedToMe).Doc(o.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("create owed-to-me: %w", err)
	}
	return nil
}

func (s *Store) GetOwedToMe(ctx context.Context, userID, id string) (core.OwedToMe, error) {
	snap, err := s.col(userID, colOwedToMe).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return core.OwedToMe{}, ledger.ErrNotFound
		}
		return core.OwedToMe{}, fmt.Errorf("get owed-to-me: %w", err)
	}
	var doc owedToMeDoc
	if err := snap.DataTo(&doc); err != nil {
		return core.OwedToMe{}, fmt.Errorf("decode owed-to-me: %w", err)
	}
	return core.OwedToMe{
		ID: id, UserID: userID, Person: doc.Person,
		Amount: core.Cents(doc.AmountCents), Description: doc.Description,
		Date: doc.Date, Received: doc.Received,
	}, nil
}

func (s *Store) DeleteOwedToMe(ctx context.Context, userID, id string) error {
	return s.deleteDoc(ctx, s.col(userID, colOwedToMe).Doc(id))
}

func (s *Store) ListOwedToMe(ctx context.Context, userID string) ([]core.OwedToMe, error) {
	snaps, err := s.col(userID, colOwedToMe).OrderBy("date", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list owed-to-me: %w", err)
	}
	out := make([]core.OwedToMe, 0, len(snaps))
	for _, snap := range snaps {
		var doc owedToMeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode owed-to-me %s: %w", snap.Ref.ID, err)
		}
		out = append(out, core.OwedToMe{
			ID: snap.Ref.ID, UserID: userID, Person: doc.Person,
			Amount: core.Cents(doc.AmountCents), Description: doc.Description,
			Date: doc.Date, Received: doc.Received,
		})
	}
	return out, nil
}

func (s *Store) CreateRecurring(ctx context.Context, re core.RecurringExpense) error {
	if re.ID == "" {
		re.ID = uuid.New().String()
	}
	doc := recurringDoc{
		Category: re.Category, AmountCents: re.Amount.Cents, Description: re.Description,
		Frequency: string(re.Frequency), StartDate: re.StartDate, NextDueDate: re.NextDueDate,
	}
	if _, err := s.col(re.UserID, colRecurring).Doc(re.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("create recurring expense: %w", err)
	}
	return nil
}

func (s *Store) DeleteRecurring(ctx context.Context, userID, id string) error {
	return s.deleteDoc(ctx, s.col(userID, colRecurring).Doc(id))
}

func (s *Store) ListRecurring(ctx context.Context, userID string) ([]core.RecurringExpense, error) {
	snaps, err := s.col(userID, colRecurring).OrderBy("nextDueDate", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	out := make([]core.RecurringExpense, 0, len(snaps))
	for _, snap := range snaps {
		var doc recurringDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode recurring expense %s: %w", snap.Ref.ID, err)
		}
		out = append(out, core.RecurringExpense{
			ID: snap.Ref.ID, UserID: userID, Category: doc.Category,
			Amount: core.Cents(doc.AmountCents), Description: doc.Description,
			Frequency: core.Frequency(doc.Frequency), StartDate: doc.StartDate, NextDueDate: doc.NextDueDate,
		})
	}
	return out, nil
}

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	doc := budgetDoc{ScopeKind: string(b.Scope.Kind), ScopeCategory: b.Scope.Category, AmountCents: b.Amount.Cents, Month: b.Month}
	if _, err := s.col(b.UserID, colBudgets).Doc(b.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	return s.deleteDoc(ctx, s.col(userID, colBudgets).Doc(id))
}

func (s *Store) ListBudgets(ctx context.Context, userID, month string) ([]core.Budget, error) {
	q := s.col(userID, colBudgets).Query
	if month != "" {
		q = q.Where("month", "==", month)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(snaps))
	for _, snap := range snaps {
		var doc budgetDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode budget %s: %w", snap.Ref.ID, err)
		}
		out = append(out, core.Budget{
			ID: snap.Ref.ID, UserID: userID,
			Scope:  core.BudgetScope{Kind: core.ScopeKind(doc.ScopeKind), Category: doc.ScopeCategory},
			Amount: core.Cents(doc.AmountCents), Month: doc.Month,
		})
	}
	return out, nil
}

// ListUsers lists every user document reference, including ones that
// exist only as subcollection parents. Over-approximates users with
// pending recurring work, which the materializer tolerates.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	refs, err := s.client.Collection("users").DocumentRefs(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.ID
	}
	return out, nil
}

// Commit applies the batch through a Firestore WriteBatch. Records named
// in deletes and updates are read first so a missing document fails the
// whole batch before anything is written. A concurrent writer can still
// slip between the reads and the commit; the caller accepts that window.
func (s *Store) Commit(ctx context.Context, userID string, batch ledger.Batch) error {
	if batch.Empty() {
		return nil
	}

	for _, id := range batch.OwedDeletes {
		if _, err := s.col(userID, colOwed).Doc(id).Get(ctx); err != nil {
			if isNotFound(err) {
				return ledger.ErrNotFound
			}
			return fmt.Errorf("check owed %s: %w", id, err)
		}
	}
	for _, id := range batch.OwedToMeDeletes {
		if _, err := s.col(userID, colOwedToMe).Doc(id).Get(ctx); err != nil {
			if isNotFound(err) {
				return ledger.ErrNotFound
			}
			return fmt.Errorf("check owed-to-me %s: %w", id, err)
		}
	}
	for _, re := range batch.RecurringUpdates {
		if _, err := s.col(userID, colRecurring).Doc(re.ID).Get(ctx); err != nil {
			if isNotFound(err) {
				return ledger.ErrNotFound
			}
			return fmt.Errorf("check recurring %s: %w", re.ID, err)
		}
	}

	wb := s.client.Batch()
	for _, e := range batch.ExpenseCreates {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		wb.Set(s.col(userID, colExpenses).Doc(id), toExpenseDoc(e))
	}
	for _, re := range batch.RecurringUpdates {
		wb.Update(s.col(userID, colRecurring).Doc(re.ID), []firestore.Update{
			{Path: "nextDueDate", Value: re.NextDueDate},
		})
	}
	for _, id := range batch.OwedDeletes {
		wb.Delete(s.col(userID, colOwed).Doc(id))
	}
	for _, id := range batch.OwedToMeDeletes {
		wb.Delete(s.col(userID, colOwedToMe).Doc(id))
	}

	if _, err := wb.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

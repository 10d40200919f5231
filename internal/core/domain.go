package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome              Kind = "income"
	KindExpense             Kind = "expense"
	KindInvestment          Kind = "investment"
	KindEssentialIncome     Kind = "essential_income"
	KindEssentialExpense    Kind = "essential_expense"
	KindEssentialInvestment Kind = "essential_investment"
)

type (
	// Kind identifies one of the six owned record kinds. The kind is implicit
	// by table: a row carries no kind column of its own.
	Kind string

	Money struct {
		Cents int64
	}

	// User is the authenticated owner of ledger rows. Identity only; account
	// management beyond signup/login lives outside the ledger.
	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// Entry is a single owned row: a ledger entry (income, expense,
	// investment) or an essential template of one.
	Entry struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		Kind          Kind      `json:"-"`
		Title         string    `json:"title"`
		Description   *string   `json:"description"`
		AmountInCents int64     `json:"amountInCents"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}
)

// kindInfo drives the generic ledger operations: one descriptor per kind
// instead of six copies of the same CRUD code.
type kindInfo struct {
	table      string
	path       string // invalidation path for the owning page
	template   bool
	registerAs Kind // for templates: the ledger kind a registration produces
}

var kinds = map[Kind]kindInfo{
	KindIncome:              {table: "incomes", path: "/ganhos"},
	KindExpense:             {table: "expenses", path: "/gastos"},
	KindInvestment:          {table: "investments", path: "/investimentos"},
	KindEssentialIncome:     {table: "essential_incomes", path: "/ganhos", template: true, registerAs: KindIncome},
	KindEssentialExpense:    {table: "essential_expenses", path: "/gastos", template: true, registerAs: KindExpense},
	KindEssentialInvestment: {table: "essential_investments", path: "/investimentos", template: true, registerAs: KindInvestment},
}

var (
	ErrEmptyTitle    = errors.New("empty title")
	ErrTitleTooLong  = errors.New("title too long (max 100 characters)")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownKind   = errors.New("unknown entry kind")
)

const MaxTitleLen = 100

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Table returns the storage table backing this kind.
func (k Kind) Table() string {
	return kinds[k].table
}

// Path returns the client page path whose cached listing a mutation of this
// kind invalidates.
func (k Kind) Path() string {
	return kinds[k].path
}

// IsTemplate reports whether the kind is an essential template rather than a
// dated ledger row.
func (k Kind) IsTemplate() bool {
	return kinds[k].template
}

// RegisterTarget returns the ledger kind produced by registering a template
// of this kind, or the empty kind for non-template kinds.
func (k Kind) RegisterTarget() Kind {
	return kinds[k].registerAs
}

// LedgerKinds lists the dated (non-template) kinds.
func LedgerKinds() []Kind {
	return []Kind{KindIncome, KindExpense, KindInvestment}
}

// TemplateKinds lists the essential template kinds.
func TemplateKinds() []Kind {
	return []Kind{KindEssentialIncome, KindEssentialExpense, KindEssentialInvestment}
}

// AllKinds lists every kind, ledger kinds first.
func AllKinds() []Kind {
	return append(LedgerKinds(), TemplateKinds()...)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Entry) Validate() error {
	if !e.Kind.Valid() {
		return ErrUnknownKind
	}
	title := strings.TrimSpace(e.Title)
	if len(title) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	return Money{Cents: e.AmountInCents}.Validate()
}

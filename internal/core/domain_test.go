package core

import (
	"errors"
	"strings"
	"testing"
)

func TestEntryValidate(t *testing.T) {
	desc := "monthly"
	valid := Entry{Kind: KindExpense, Title: "Rent", Description: &desc, AmountInCents: 150000}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	cases := []struct {
		name  string
		entry Entry
		want  error
	}{
		{"empty title", Entry{Kind: KindExpense, Title: "", AmountInCents: 100}, ErrEmptyTitle},
		{"whitespace title", Entry{Kind: KindExpense, Title: "   ", AmountInCents: 100}, ErrEmptyTitle},
		{"title too long", Entry{Kind: KindExpense, Title: strings.Repeat("x", MaxTitleLen+1), AmountInCents: 100}, ErrTitleTooLong},
		{"zero amount", Entry{Kind: KindExpense, Title: "Rent", AmountInCents: 0}, ErrInvalidAmount},
		{"negative amount", Entry{Kind: KindExpense, Title: "Rent", AmountInCents: -1}, ErrInvalidAmount},
		{"unknown kind", Entry{Kind: Kind("savings"), Title: "Rent", AmountInCents: 100}, ErrUnknownKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.entry.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEntryValidateBoundaryTitle(t *testing.T) {
	e := Entry{Kind: KindIncome, Title: strings.Repeat("x", MaxTitleLen), AmountInCents: 1}
	if err := e.Validate(); err != nil {
		t.Fatalf("100-char title should be valid: %v", err)
	}
}

func TestKindDescriptors(t *testing.T) {
	if KindExpense.IsTemplate() {
		t.Fatal("expense is not a template kind")
	}
	if !KindEssentialExpense.IsTemplate() {
		t.Fatal("essential expense is a template kind")
	}
	if got := KindEssentialExpense.RegisterTarget(); got != KindExpense {
		t.Fatalf("essential expense registers as %q", got)
	}
	if got := KindEssentialIncome.RegisterTarget(); got != KindIncome {
		t.Fatalf("essential income registers as %q", got)
	}
	if KindIncome.RegisterTarget() != "" {
		t.Fatal("ledger kinds have no register target")
	}
	if Kind("savings").Valid() {
		t.Fatal("unknown kind must not validate")
	}
	for _, k := range AllKinds() {
		if k.Table() == "" || k.Path() == "" {
			t.Fatalf("kind %q missing descriptor", k)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	err := ValidationErr(ErrEmptyTitle)
	if KindOf(err) != ErrValidation {
		t.Fatalf("got %v", KindOf(err))
	}
	if !errors.Is(err, ErrEmptyTitle) {
		t.Fatal("validation wrapper must preserve the sentinel")
	}
	if KindOf(Unauthenticated()) != ErrUnauthenticated {
		t.Fatal("unauthenticated kind lost")
	}
	if KindOf(NotFoundf("entry %s", "abc")) != ErrNotFound {
		t.Fatal("not-found kind lost")
	}
	if KindOf(errors.New("boom")) != ErrStore {
		t.Fatal("untagged errors default to store failures")
	}
}

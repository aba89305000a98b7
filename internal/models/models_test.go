package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOwnership(t *testing.T) {
	if got := (&Expense{ResidentID: 42}).GetUserID(); got != 42 {
		t.Errorf("Expense.GetUserID() = %d, want 42", got)
	}
	if got := (&Fine{ResidentID: 7}).GetUserID(); got != 7 {
		t.Errorf("Fine.GetUserID() = %d, want 7", got)
	}
	if got := (&User{ID: 3}).GetUserID(); got != 3 {
		t.Errorf("User.GetUserID() = %d, want 3", got)
	}
	uid := uint(5)
	if got := (&Notification{UserID: &uid}).GetUserID(); got != 5 {
		t.Errorf("Notification.GetUserID() = %d, want 5", got)
	}
	if got := (&Notification{}).GetUserID(); got != 0 {
		t.Errorf("system notification should have no owner, got %d", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
		ok   bool
	}{
		{"50000", 5000000, true},
		{"50000.5", 5000050, true},
		{"50000.05", 5000005, true},
		{"0.99", 99, true},
		{"-1.50", -150, true},
		{"1.234", 0, false},
		{"1.", 0, false},
		{".5", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseAmount(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAmountFormatting(t *testing.T) {
	a := Amount(5000000)
	if a.String() != "50000.00" {
		t.Errorf("String() = %s", a.String())
	}
	if a.Display() != "$50,000.00" {
		t.Errorf("Display() = %s", a.Display())
	}
	b, _ := json.Marshal(struct {
		Amount Amount `json:"amount"`
	}{Amount(1205)})
	if string(b) != `{"amount":12.05}` {
		t.Errorf("unexpected JSON %s", b)
	}

	var in struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":12.5,"b":"7.25"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.A != 1250 || in.B != 725 {
		t.Errorf("unexpected decode a=%d b=%d", in.A, in.B)
	}
}

func TestDateJSONAndScan(t *testing.T) {
	d, err := ParseDate("2025-03-15")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, _ := json.Marshal(d)
	if string(b) != `"2025-03-15"` {
		t.Errorf("unexpected JSON %s", b)
	}

	var scanned Date
	if err := scanned.Scan("2025-03-15 00:00:00+00:00"); err != nil {
		t.Fatalf("scan text: %v", err)
	}
	if scanned.String() != "2025-03-15" {
		t.Errorf("scan text gave %s", scanned)
	}
	if err := scanned.Scan(time.Date(2025, 4, 1, 13, 30, 0, 0, time.UTC)); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if scanned.String() != "2025-04-01" {
		t.Errorf("scan time gave %s", scanned)
	}
	if _, err := ParseDate("15/03/2025"); err == nil {
		t.Errorf("expected error for non ISO date")
	}
}

func TestExpenseStatus(t *testing.T) {
	due, _ := ParseDate("2025-03-10")
	e := &Expense{Status: ExpenseStatusPending, DueDate: due}
	if !e.IsOverdue(DateOf(time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC))) {
		t.Errorf("pending expense past due should be overdue")
	}
	if e.IsOverdue(due) {
		t.Errorf("expense is not overdue on its due date")
	}
	e.Status = ExpenseStatusPaid
	if e.IsOverdue(DateOf(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))) {
		t.Errorf("paid expense is never overdue")
	}
}

func TestFineTerminal(t *testing.T) {
	for status, terminal := range map[FineStatus]bool{
		FineStatusPending: false,
		FineStatusPaid:    true,
		FineStatusVoided:  true,
	} {
		if got := (&Fine{Status: status}).IsTerminal(); got != terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, terminal)
		}
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleAdmin.Valid() || !RoleResident.Valid() {
		t.Fatalf("expected known roles to be valid")
	}
	if Role("owner").Valid() {
		t.Fatalf("unknown role must be invalid")
	}
}

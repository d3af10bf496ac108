package enums

import "testing"

func TestParseAccountStatus(t *testing.T) {
	got, err := ParseAccountStatus(" Deactivated ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != AccountStatusDeactivated {
		t.Fatalf("expected deactivated, got %s", got)
	}
	if _, err := ParseAccountStatus("frozen"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestAccountStatusUsable(t *testing.T) {
	cases := map[AccountStatus]bool{
		AccountStatusActive:      true,
		"":                       true,
		"PENDING":                true,
		AccountStatusInactive:    false,
		"DEACTIVATED":            false,
		AccountStatusDeactivated: false,
	}
	for status, want := range cases {
		if got := status.Usable(); got != want {
			t.Fatalf("status %q usable=%v want %v", status, got, want)
		}
	}
}

func TestAccountTypeValidity(t *testing.T) {
	if !AccountTypeGuest.IsValid() || !AccountTypeRegistered.IsValid() {
		t.Fatal("known types must be valid")
	}
	if AccountType("vip").IsValid() {
		t.Fatal("unknown type must be invalid")
	}
	if got, err := ParseAccountType("REGISTERED"); err != nil || got != AccountTypeRegistered {
		t.Fatalf("unexpected parse result %v %v", got, err)
	}
}

package model

import "testing"

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleBroker, RoleAdministrator, RoleConcierge, RoleConvoy} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false", role)
		}
	}
	for _, role := range []string{"", "admin", LotOwnerRole} {
		if ValidRole(role) {
			t.Errorf("ValidRole(%q) = true", role)
		}
	}
}

func TestIsBot(t *testing.T) {
	if !IsBot(RoleConcierge) || !IsBot(RoleConvoy) {
		t.Error("service accounts should be bots")
	}
	if IsBot(RoleBroker) || IsBot(RoleAdministrator) {
		t.Error("broker and administrator are not bots")
	}
}

func TestHasAccreditation(t *testing.T) {
	tests := []struct {
		levels, required string
		want             bool
	}{
		{"1", "12", true},
		{"2", "12", true},
		{"12", "12", true},
		{"3", "12", false},
		{"", "12", false},
		{"3t", "3", true},
		{"t", "12", false},
	}
	for _, tt := range tests {
		if got := HasAccreditation(tt.levels, tt.required); got != tt.want {
			t.Errorf("HasAccreditation(%q, %q) = %v", tt.levels, tt.required, got)
		}
	}
}

func TestTestOnlyAccreditation(t *testing.T) {
	if !TestOnlyAccreditation("t") || !TestOnlyAccreditation("tt") {
		t.Error("pure sandbox tiers should report test-only")
	}
	if TestOnlyAccreditation("1t") || TestOnlyAccreditation("1") || TestOnlyAccreditation("") {
		t.Error("mixed or empty tiers are not test-only")
	}
}

func TestValidLevels(t *testing.T) {
	for _, levels := range []string{"", "1", "12t", "t", "0369"} {
		if !ValidLevels(levels) {
			t.Errorf("ValidLevels(%q) = false", levels)
		}
	}
	for _, levels := range []string{"a", "1 2", "T", "1,2"} {
		if ValidLevels(levels) {
			t.Errorf("ValidLevels(%q) = true", levels)
		}
	}
}

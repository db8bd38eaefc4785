package enums

import "testing"

func TestParseProfileRole(t *testing.T) {
	for _, raw := range []string{"user", "seller", "admin"} {
		role, err := ParseProfileRole(raw)
		if err != nil || !role.IsValid() {
			t.Fatalf("expected %q to parse, got %v", raw, err)
		}
	}
	if _, err := ParseProfileRole("owner"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestParseStoreEnums(t *testing.T) {
	if s, err := ParseStoreStatus("published"); err != nil || s != StoreStatusPublished {
		t.Fatalf("unexpected status parse %v %v", s, err)
	}
	if _, err := ParseStoreStatus("all"); err == nil {
		t.Fatal("all is a filter keyword, not a stored status")
	}
	if d, err := ParseDateFilter("ongoing"); err != nil || !d.IsValid() {
		t.Fatalf("unexpected date filter parse %v %v", d, err)
	}
	if _, err := ParseStoreSort("distance"); err != nil {
		t.Fatalf("distance sort should parse: %v", err)
	}
	if _, err := ParseReviewSort("rating_low"); err != nil {
		t.Fatalf("rating_low should parse: %v", err)
	}
}

func TestCollaborationEnums(t *testing.T) {
	if !CollaborationTypeSpaceSharing.IsValid() {
		t.Fatal("space_sharing should be valid")
	}
	if CollaborationType("barter").IsValid() {
		t.Fatal("barter should be invalid")
	}
	if _, err := ParseCollaborationStatus("pending"); err != nil {
		t.Fatalf("pending should parse: %v", err)
	}
}

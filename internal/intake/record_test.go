package intake

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordSetIsMonotonic(t *testing.T) {
	var r Record
	if !r.Set(FieldCallerName, "Jane") {
		t.Fatal("expected first set to change the record")
	}
	if r.Set(FieldCallerName, "  ") {
		t.Fatal("empty value must not overwrite")
	}
	if r.Set(FieldCallerName, "unknown") {
		t.Fatal("unknown must not replace a real answer")
	}
	if !r.Set(FieldCallerName, "Jane Doe") {
		t.Fatal("a new non-empty value may refine the field")
	}
	if r.CallerName != "Jane Doe" {
		t.Fatalf("unexpected name %q", r.CallerName)
	}

	if !r.Set(FieldServiceFeeMentioned, "true") || r.Set(FieldServiceFeeMentioned, "false") {
		t.Fatal("flags only switch on")
	}
	if !r.ServiceFeeMentioned {
		t.Fatal("flag must stay on")
	}
	if r.Set(Field("bogus"), "x") {
		t.Fatal("unknown field must be ignored")
	}
}

func TestMergeKeepsExistingValues(t *testing.T) {
	existing := Record{CallerName: "Jane", City: "Denver"}
	incoming := Record{CallerName: "Janet", City: "", CallerPhone: "+15551234567", Urgency: "ASAP"}
	got := Merge(existing, incoming)
	want := Record{
		CallerName:     "Jane",
		CallerPhone:    "+15551234567",
		City:           "Denver",
		Urgency:        "ASAP",
		FullName:       "Jane",
		CallbackNumber: "+15551234567",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeReplacesUnknownPlaceholder(t *testing.T) {
	existing := Record{CallerName: Unknown, City: "Denver"}
	got := Merge(existing, Record{CallerName: "Jane", City: "Boulder"})
	if got.CallerName != "Jane" || got.City != "Denver" {
		t.Fatalf("unexpected merge %+v", got)
	}
	kept := Merge(existing, Record{})
	if kept.CallerName != Unknown {
		t.Fatalf("placeholder dropped: %+v", kept)
	}
}

func TestApplyLooseUpdates(t *testing.T) {
	r := Record{IssueCategory: "No heat"}
	changed, err := r.Apply(map[string]any{
		"issueCategory":        "",
		"callerName":           "Sam",
		"nextAvailableOffered": true,
		"zipCode":              "80202",
	})
	if err == nil {
		t.Fatal("expected unknown field error")
	}
	if r.IssueCategory != "No heat" || r.CallerName != "Sam" || !r.NextAvailableOffered {
		t.Fatalf("unexpected record %+v", r)
	}
	if changed[FieldCallerName] != "Sam" || changed[FieldNextAvailableOffered] != "true" {
		t.Fatalf("unexpected changes %v", changed)
	}
	if _, ok := changed[FieldIssueCategory]; ok {
		t.Fatal("empty update must not be reported")
	}
}

func TestLegacyAliasesFillBothWays(t *testing.T) {
	r := Record{FullName: "Pat", CallerPhone: "+15550001111", ReasonForCall: "furnace clicking"}
	r.FillAliases()
	if r.CallerName != "Pat" || r.CallbackNumber != "+15550001111" || r.IssueDescription != "furnace clicking" {
		t.Fatalf("aliases not filled: %+v", r)
	}
	if r.Issue() != "furnace clicking" || r.Name() != "Pat" {
		t.Fatalf("unexpected accessors %q %q", r.Issue(), r.Name())
	}
	r.AddressLine1, r.City = "1 Elm St", "Boise"
	if r.Address() != "1 Elm St, Boise" {
		t.Fatalf("unexpected address %q", r.Address())
	}
}

func TestParseState(t *testing.T) {
	if s, ok := ParseState(" caller_name "); !ok || s != StateCallerName {
		t.Fatalf("unexpected parse %q %v", s, ok)
	}
	if _, ok := ParseState("GREETING"); ok {
		t.Fatal("unknown state must be rejected")
	}
	if s, ok := ParseState("pricing"); !ok || s != StatePricing {
		t.Fatal("pricing is a valid detour state")
	}
}

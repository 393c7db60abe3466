package gates

import "testing"

func TestSeverityOrdering(t *testing.T) {
	cases := []struct {
		severity Severity
		min      Severity
		want     bool
	}{
		{SeverityInfo, SeverityWarn, false},
		{SeverityWarn, SeverityWarn, true},
		{SeverityError, SeverityBlocker, false},
		{SeverityBlocker, SeverityBlocker, true},
		{Severity("bogus"), SeverityInfo, false},
	}
	for _, tc := range cases {
		if got := tc.severity.AtLeast(tc.min); got != tc.want {
			t.Fatalf("%s.AtLeast(%s) = %v, want %v", tc.severity, tc.min, got, tc.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	got, err := ParseSeverity(" Blocker ")
	if err != nil || got != SeverityBlocker {
		t.Fatalf("unexpected %q %v", got, err)
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestFirstAtLeastKeepsInputOrder(t *testing.T) {
	issues := []Issue{
		{IssueID: "a", Severity: SeverityError},
		{IssueID: "b", Severity: SeverityBlocker},
		{IssueID: "c", Severity: SeverityBlocker},
	}
	issue, ok := FirstAtLeast(issues, SeverityBlocker)
	if !ok || issue.IssueID != "b" {
		t.Fatalf("expected b, got %+v", issue)
	}
	if _, ok := FirstAtLeast(issues[:1], SeverityBlocker); ok {
		t.Fatalf("expected no blocker")
	}
}

func TestProfileFor(t *testing.T) {
	profile, err := ProfileFor("")
	if err != nil || profile.Name != "local" {
		t.Fatalf("expected default local, got %+v %v", profile, err)
	}
	prod, err := ProfileFor("PROD")
	if err != nil || !prod.Strict || prod.GateTimeout <= profile.GateTimeout {
		t.Fatalf("unexpected prod profile %+v %v", prod, err)
	}
	if _, err := ProfileFor("staging"); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}

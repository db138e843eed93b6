package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestJobApplicationRecord_AppliedImpliesTimestamp(t *testing.T) {
	now := time.Now().UTC()
	r := JobApplicationRecord{
		ID:        "rec-1",
		Status:    StatusApplied,
		AppliedAt: &now,
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var round JobApplicationRecord
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if round.AppliedAt == nil {
		t.Fatal("applied_at should round-trip as non-nil for an applied record")
	}
	if round.FailureReason != nil {
		t.Fatal("failure_reason should be nil for an applied record")
	}
}

func TestJobApplicationRecord_FailedHasNilAppliedAt(t *testing.T) {
	reason := "Agent reported failure"
	r := JobApplicationRecord{
		ID:            "rec-2",
		Status:        StatusFailed,
		FailureReason: &reason,
	}
	if r.AppliedAt != nil {
		t.Fatal("applied_at must be nil for a failed record")
	}
	if r.FailureReason == nil || *r.FailureReason != reason {
		t.Fatalf("failure_reason not preserved: %+v", r.FailureReason)
	}
}

func TestCompanyNameFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.acme.com/jobs/42":     "Acme",
		"https://jobs.greenhouse.io/acme":  "Jobs",
		"not a url":                        "Unknown",
		"https://CapitalCo.example.com/jd": "Capitalco",
	}
	for input, want := range cases {
		if got := CompanyNameFromURL(input); got != want {
			t.Errorf("CompanyNameFromURL(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestAgentResult_StepsTakenOrder(t *testing.T) {
	res := AgentResult{
		Status: "success",
		StepsTaken: []AgentStep{
			{StepNumber: 0, ToolName: "goto"},
			{StepNumber: 1, ToolName: "click"},
			{StepNumber: 2, ToolName: "done"},
		},
	}
	for i, step := range res.StepsTaken {
		if step.StepNumber != i {
			t.Errorf("step %d has StepNumber %d, want gap-free sequence", i, step.StepNumber)
		}
	}
}

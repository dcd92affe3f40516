package models

import "testing"

func TestInvestmentTransitions(t *testing.T) {
	allowed := []struct {
		from, to InvestmentStatus
	}{
		{InvestmentPending, InvestmentProcessing},
		{InvestmentPending, InvestmentCancelled},
		{InvestmentProcessing, InvestmentConfirmed},
		{InvestmentProcessing, InvestmentFailed},
		{InvestmentProcessing, InvestmentCancelled},
		{InvestmentConfirmed, InvestmentRefunded},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	rejected := []struct {
		from, to InvestmentStatus
	}{
		{InvestmentPending, InvestmentConfirmed},
		{InvestmentPending, InvestmentRefunded},
		{InvestmentProcessing, InvestmentPending},
		{InvestmentConfirmed, InvestmentProcessing},
		{InvestmentFailed, InvestmentPending},
		{InvestmentCancelled, InvestmentProcessing},
		{InvestmentRefunded, InvestmentConfirmed},
	}
	for _, tc := range rejected {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestReleasesTokens(t *testing.T) {
	releasing := []InvestmentStatus{InvestmentFailed, InvestmentCancelled, InvestmentRefunded}
	for _, s := range releasing {
		if !s.ReleasesTokens() {
			t.Errorf("%s should release tokens", s)
		}
	}

	holding := []InvestmentStatus{InvestmentPending, InvestmentProcessing, InvestmentConfirmed}
	for _, s := range holding {
		if s.ReleasesTokens() {
			t.Errorf("%s should hold its tokens", s)
		}
	}
}

func TestPropertyTransitions(t *testing.T) {
	if !PropertyDraft.CanTransitionTo(PropertyPendingApproval) {
		t.Error("draft -> pending_approval should be allowed")
	}
	if !PropertyPendingApproval.CanTransitionTo(PropertyDraft) {
		t.Error("pending_approval -> draft should be allowed")
	}
	if !PropertyInactive.CanTransitionTo(PropertyActive) {
		t.Error("inactive -> active should be allowed")
	}
	if PropertyDraft.CanTransitionTo(PropertyActive) {
		t.Error("draft -> active must pass through approval")
	}
	if PropertySold.CanTransitionTo(PropertyActive) {
		t.Error("sold is terminal")
	}
}

func TestTransactionStatusFor(t *testing.T) {
	cases := map[InvestmentStatus]TransactionStatus{
		InvestmentPending:    TransactionPending,
		InvestmentProcessing: TransactionPending,
		InvestmentConfirmed:  TransactionCompleted,
		InvestmentFailed:     TransactionFailed,
		InvestmentCancelled:  TransactionCancelled,
		InvestmentRefunded:   TransactionPending,
	}
	for in, want := range cases {
		if got := TransactionStatusFor(in); got != want {
			t.Errorf("TransactionStatusFor(%s) = %s, want %s", in, got, want)
		}
	}
}

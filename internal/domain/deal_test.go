package domain

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestValidateDealTransitionLifecycle(t *testing.T) {
	allowed := [][2]DealStatus{
		{DealStatusFunded, DealStatusDelivered},
		{DealStatusFunded, DealStatusDisputed},
		{DealStatusDelivered, DealStatusSettled},
		{DealStatusDelivered, DealStatusDisputed},
		{DealStatusDisputed, DealStatusSettled},
		{DealStatusDisputed, DealStatusRefunded},
	}
	for _, pair := range allowed {
		if err := ValidateDealTransition(pair[0], pair[1]); err != nil {
			t.Fatalf("transition %s -> %s: %v", pair[0], pair[1], err)
		}
	}
	forbidden := [][2]DealStatus{
		{DealStatusFunded, DealStatusSettled},
		{DealStatusFunded, DealStatusRefunded},
		{DealStatusDelivered, DealStatusFunded},
		{DealStatusSettled, DealStatusDisputed},
		{DealStatusSettled, DealStatusRefunded},
		{DealStatusRefunded, DealStatusSettled},
		{DealStatusDisputed, DealStatusDelivered},
	}
	for _, pair := range forbidden {
		err := ValidateDealTransition(pair[0], pair[1])
		if !errors.Is(err, ErrInvalidStateTransition) {
			t.Fatalf("transition %s -> %s: want ErrInvalidStateTransition, got %v", pair[0], pair[1], err)
		}
	}
}

func TestValidateCreateDealInput(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	if err := ValidateCreateDealInput("sponsor", "beneficiary", "native", big.NewInt(100), future, now); err != nil {
		t.Fatalf("ValidateCreateDealInput: %v", err)
	}
	if err := ValidateCreateDealInput("sponsor", "beneficiary", "native", big.NewInt(0), future, now); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if err := ValidateCreateDealInput("sponsor", "beneficiary", "native", big.NewInt(100), now, now); err == nil {
		t.Fatal("expected error for non-future deadline")
	}
	if err := ValidateCreateDealInput("", "beneficiary", "native", big.NewInt(100), future, now); err == nil {
		t.Fatal("expected error for empty sponsor")
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !DealStatusSettled.Terminal() || !DealStatusRefunded.Terminal() {
		t.Fatal("settled and refunded must be terminal")
	}
	if DealStatusFunded.Terminal() || DealStatusDelivered.Terminal() || DealStatusDisputed.Terminal() {
		t.Fatal("open statuses must not be terminal")
	}
}

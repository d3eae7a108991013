package models

import (
	"testing"

	"github.com/pujakriti/checkout-service/internal/apperr"
)

func ptr(v int64) *int64 { return &v }

func TestCartLineTarget(t *testing.T) {
	tests := []struct {
		name    string
		line    CartLine
		want    LineTarget
		wantErr bool
	}{
		{"product line", CartLine{ProductID: ptr(7)}, ProductTarget(7), false},
		{"bundle line", CartLine{BundleID: ptr(5)}, BundleTarget(5), false},
		{"both set", CartLine{ProductID: ptr(7), BundleID: ptr(5)}, LineTarget{}, true},
		{"neither set", CartLine{}, LineTarget{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.line.Target()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				if !apperr.IsValidation(err) {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected target %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled,
	} {
		if !ValidOrderStatus(s) {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	if ValidOrderStatus(OrderStatus("TELEPORTED")) {
		t.Error("Expected unknown status to be invalid")
	}
}

package auth_test

import (
	"testing"

	"github.com/tablewise/restaurant-api/internal/auth"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role string
		cap  auth.Capability
		want bool
	}{
		{"Admin", auth.CapCatalogWrite, true},
		{"Admin", auth.CapOrdersDelete, true},
		{"Admin", auth.CapStatisticsRead, true},
		{"Waiter", auth.CapOrdersUpdateStatus, true},
		{"Waiter", auth.CapOrdersReadAll, true},
		{"Waiter", auth.CapOrdersDelete, false},
		{"Waiter", auth.CapCatalogWrite, false},
		{"User", auth.CapOrdersUpdateStatus, false},
		{"User", auth.CapOrdersCreateForOthers, false},
		{"Ghost", auth.CapOrdersReadAll, false},
	}
	for _, tt := range tests {
		if got := auth.Can(tt.role, tt.cap); got != tt.want {
			t.Errorf("Can(%q, %q): got %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

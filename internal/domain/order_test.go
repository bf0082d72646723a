package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderStatusPriority(t *testing.T) {
	tests := []struct {
		name  string
		order ProductionOrder
		want  string
	}{
		{
			name:  "released and partially confirmed, not delivered",
			order: ProductionOrder{OrderIsReleased: "X", OrderIsPartiallyConfirmed: "X"},
			want:  "45",
		},
		{
			name:  "released and partially delivered",
			order: ProductionOrder{OrderIsReleased: "X", OrderIsPartiallyDelivered: "X"},
			want:  "90",
		},
		{
			name:  "released and confirmed",
			order: ProductionOrder{OrderIsReleased: "X", OrderIsConfirmed: "X"},
			want:  "95",
		},
		{
			name:  "technically completed",
			order: ProductionOrder{OrderIsTechnicallyCompleted: "X"},
			want:  "95",
		},
		{
			name:  "released only",
			order: ProductionOrder{OrderIsReleased: "X"},
			want:  "40",
		},
		{
			name:  "created only",
			order: ProductionOrder{OrderIsCreated: "X"},
			want:  OrderStatusCreated,
		},
		{
			// Delivered blocks the partially-confirmed rule, but the
			// partially-delivered rule still applies.
			name: "released, partially confirmed and partially delivered",
			order: ProductionOrder{
				OrderIsReleased:           "X",
				OrderIsPartiallyConfirmed: "X",
				OrderIsDelivered:          "X",
				OrderIsPartiallyDelivered: "X",
			},
			want: "90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.order.OrderStatus()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOrderStatusUnmappedCombinationFails(t *testing.T) {
	order := ProductionOrder{}
	_, err := order.OrderStatus()

	var consistency *ConsistencyError
	require.ErrorAs(t, err, &consistency)
	require.Contains(t, err.Error(), "OrderIsReleased")
	require.Contains(t, err.Error(), "OrderIsCreated")
}

func TestStepStatusPriority(t *testing.T) {
	tests := []struct {
		name string
		op   ProductionOrderOperation
		want string
	}{
		{"closed wins", ProductionOrderOperation{IsClosed: "X", IsReleased: "X"}, "30"},
		{"partially confirmed", ProductionOrderOperation{IsPartiallyConfirmed: "X", IsReleased: "X"}, "20"},
		{"released", ProductionOrderOperation{IsReleased: "X"}, "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.StepStatus()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStepStatusUnmappedCombinationFails(t *testing.T) {
	op := ProductionOrderOperation{}
	_, err := op.StepStatus()

	var consistency *ConsistencyError
	require.ErrorAs(t, err, &consistency)
	require.Contains(t, err.Error(), "OperationIsClosed")
}

func TestPrimaryOperations(t *testing.T) {
	order := ProductionOrder{Operations: []ProductionOrderOperation{
		{Operation: "0010", Sequence: "0"},
		{Operation: "0020", Sequence: "0", IsDeleted: "X"},
		{Operation: "0030", Sequence: "1"},
		{Operation: "0040", Sequence: "0"},
	}}

	ops := order.PrimaryOperations()
	require.Len(t, ops, 2)
	require.Equal(t, "0010", ops[0].Operation)
	require.Equal(t, "0040", ops[1].Operation)
}

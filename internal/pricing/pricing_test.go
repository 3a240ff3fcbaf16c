package pricing

import (
	"testing"

	"crackers-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  models.Pricing
	}{
		{
			name:  "small order pays shipping",
			lines: []Line{{Price: 100, Quantity: 2}, {Price: 49.5, Quantity: 1}},
			want:  models.Pricing{Subtotal: 249.5, Tax: 44.91, Shipping: 50, Total: 344.41},
		},
		{
			name:  "exactly 1000 still pays shipping",
			lines: []Line{{Price: 500, Quantity: 2}},
			want:  models.Pricing{Subtotal: 1000, Tax: 180, Shipping: 50, Total: 1230},
		},
		{
			name:  "above 1000 ships free",
			lines: []Line{{Price: 1000.01, Quantity: 1}},
			want:  models.Pricing{Subtotal: 1000.01, Tax: 180, Shipping: 0, Total: 1180.01},
		},
		{
			name:  "float noise is rounded away",
			lines: []Line{{Price: 0.1, Quantity: 3}},
			want:  models.Pricing{Subtotal: 0.3, Tax: 0.05, Shipping: 50, Total: 50.35},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.lines, 0)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, Validate(got))
		})
	}
}

func TestComputeWithDiscount(t *testing.T) {
	got := Compute([]Line{{Price: 2000, Quantity: 1}}, 100)
	assert.Equal(t, 100.0, got.Discount)
	assert.Equal(t, 2260.0, got.Total)
	assert.NoError(t, Validate(got))
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(models.Pricing{Subtotal: 100, Tax: 18, Shipping: 50, Total: 200}), ErrInconsistent)
	assert.ErrorIs(t, Validate(models.Pricing{Subtotal: -1, Total: -1}), ErrInconsistent)
	assert.NoError(t, Validate(models.Pricing{Subtotal: 100, Tax: 18, Shipping: 50, Total: 168}))
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Pincode string `validate:"pincode"`
	Phone   string `validate:"omitempty,phone"`
	Ref     string `validate:"omitempty,objectid"`
	Email   string `validate:"omitempty,mail"`
}

func TestRules(t *testing.T) {
	tests := []struct {
		name string
		in   sample
		ok   bool
	}{
		{"valid pincode", sample{Pincode: "600001"}, true},
		{"pincode with leading zero", sample{Pincode: "012345"}, false},
		{"short pincode", sample{Pincode: "6000"}, false},
		{"alpha pincode", sample{Pincode: "60000a"}, false},
		{"indian mobile", sample{Pincode: "600001", Phone: "9876543210"}, true},
		{"mobile with prefix", sample{Pincode: "600001", Phone: "+91 9876543210"}, true},
		{"landline rejected", sample{Pincode: "600001", Phone: "0442345678"}, false},
		{"object id", sample{Pincode: "600001", Ref: "64b7f0c2a1b2c3d4e5f60718"}, true},
		{"bad object id", sample{Pincode: "600001", Ref: "nope"}, false},
		{"email", sample{Pincode: "600001", Email: "a.b@shop.in"}, true},
		{"bad email", sample{Pincode: "600001", Email: "a@b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

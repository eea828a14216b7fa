package validation

import "testing"

func TestIsValidVPA(t *testing.T) {
	tests := []struct {
		name  string
		vpa   string
		valid bool
	}{
		{
			name:  "simple handle",
			vpa:   "ravi@okaxis",
			valid: true,
		},
		{
			name:  "dots and digits",
			vpa:   "ravi.kumar.99@ybl",
			valid: true,
		},
		{
			name:  "missing handle",
			vpa:   "ravi",
			valid: false,
		},
		{
			name:  "empty",
			vpa:   "",
			valid: false,
		},
		{
			name:  "two at signs",
			vpa:   "ravi@ok@axis",
			valid: false,
		},
		{
			name:  "spaces",
			vpa:   "ravi kumar@upi",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidVPA(tt.vpa); got != tt.valid {
				t.Fatalf("IsValidVPA(%q) = %v, want %v", tt.vpa, got, tt.valid)
			}
		})
	}
}

type sampleAddress struct {
	City    string `json:"city" validate:"required"`
	Pincode string `json:"pincode" validate:"required,numeric,len=6"`
}

type sampleRequest struct {
	ProductID string        `json:"productId" validate:"required,uuid"`
	Quantity  int           `json:"quantity" validate:"min=1"`
	Method    string        `json:"paymentMethod" validate:"oneof=cod upi card"`
	PayerVPA  string        `json:"payerVpa" validate:"omitempty,vpa"`
	Address   sampleAddress `json:"shippingAddress"`
}

func validSample() sampleRequest {
	return sampleRequest{
		ProductID: "9b2f4c1e-4a43-4f4a-8c1f-0c1e6f1b2a3d",
		Quantity:  2,
		Method:    "upi",
		PayerVPA:  "ravi@okaxis",
		Address:   sampleAddress{City: "Pune", Pincode: "411001"},
	}
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *sampleRequest)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(r *sampleRequest) {},
		},
		{
			name:    "zero quantity",
			mutate:  func(r *sampleRequest) { r.Quantity = 0 },
			wantErr: "quantity must be at least 1",
		},
		{
			name:    "unknown payment method",
			mutate:  func(r *sampleRequest) { r.Method = "cash" },
			wantErr: "paymentMethod must be one of: cod, upi, card",
		},
		{
			name:    "bad product id",
			mutate:  func(r *sampleRequest) { r.ProductID = "42" },
			wantErr: "productId must be a valid id",
		},
		{
			name:    "nested pincode",
			mutate:  func(r *sampleRequest) { r.Address.Pincode = "41100" },
			wantErr: "shippingAddress.pincode must be 6 characters long",
		},
		{
			name:    "bad vpa",
			mutate:  func(r *sampleRequest) { r.PayerVPA = "nobody" },
			wantErr: "payerVpa must be a valid UPI address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validSample()
			tt.mutate(&r)

			err := Struct(r)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

package validator

import "testing"

type purchaseRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Platform      string `json:"platform" validate:"required,platform"`
}

type loginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	LoginType string `json:"loginType" validate:"required,login_type"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(purchaseRequest{Platform: "windows"})
	if errs == nil {
		t.Fatalf("expected validation errors")
	}
	if errs["transactionId"] != "This field is required" {
		t.Fatalf("transactionId error = %q", errs["transactionId"])
	}
	if errs["platform"] != "Invalid platform. Must be: ios or android" {
		t.Fatalf("platform error = %q", errs["platform"])
	}
}

func TestValidateAcceptsValidPlatform(t *testing.T) {
	for _, p := range []string{"ios", "android"} {
		if errs := Validate(purchaseRequest{TransactionID: "T1", Platform: p}); errs != nil {
			t.Fatalf("platform %q rejected: %v", p, errs)
		}
	}
}

func TestValidateLoginType(t *testing.T) {
	if errs := Validate(loginRequest{Email: "a@b.co", LoginType: "Apple"}); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	errs := Validate(loginRequest{Email: "nope", LoginType: "Facebook"})
	if errs["email"] == "" || errs["loginType"] == "" {
		t.Fatalf("expected email and loginType errors, got %v", errs)
	}
}

package purchase

// VerifyPurchaseRequest is the POST /pricing/verify-purchase body.
type VerifyPurchaseRequest struct {
	TransactionID string `json:"transactionId" validate:"required,max=255"`
	ProductID     string `json:"productId" validate:"required,max=64"`
	Receipt       string `json:"receipt" validate:"required"`
	Platform      string `json:"platform" validate:"required,platform"`
	IsTestMode    bool   `json:"isTestMode"`
}

// VerifyPurchaseResponse reports a successful grant.
type VerifyPurchaseResponse struct {
	Success        bool   `json:"success"`
	Credits        int    `json:"credits"`
	NewBalance     int    `json:"newBalance"`
	IsTestPurchase bool   `json:"isTestPurchase"`
	Message        string `json:"message"`
}

// PlanResponse is a catalogue entry as shown to clients.
type PlanResponse struct {
	Name      string `json:"name"`
	ProductID string `json:"productId"`
	Platform  string `json:"platform"`
}

func plansResponse(plans []Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, PlanResponse{Name: p.Name, ProductID: p.ProductID, Platform: string(p.Platform)})
	}
	return out
}

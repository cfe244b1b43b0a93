package credit

import "time"

// HistoryItemResponse is one ledger entry as returned to clients.
type HistoryItemResponse struct {
	Amount int       `json:"amount"`
	Type   Reason    `json:"type"`
	Date   time.Time `json:"date"`
}

// TotalsResponse is the ledger view embedded in the user profile.
type TotalsResponse struct {
	Balance           int `json:"balance"`
	TotalCreditsEarn  int `json:"totalCreditsEarn"`
	TotalCreditsSpend int `json:"totalCreditsSpend"`
	TotalAdsWatch     int `json:"totalAdsWatch"`
}

// SummaryResponse is the GET /credits payload. History is always present,
// empty for a user with no entries.
type SummaryResponse struct {
	TotalsResponse
	History []HistoryItemResponse `json:"history"`
}

func TotalsResponseFrom(s *Summary) TotalsResponse {
	return TotalsResponse{
		Balance:           s.Balance,
		TotalCreditsEarn:  s.TotalEarned,
		TotalCreditsSpend: s.TotalSpent,
		TotalAdsWatch:     s.AdsWatched,
	}
}

func SummaryResponseFrom(s *Summary) SummaryResponse {
	resp := SummaryResponse{
		TotalsResponse: TotalsResponseFrom(s),
		History:        make([]HistoryItemResponse, 0, len(s.History)),
	}
	for _, h := range s.History {
		resp.History = append(resp.History, HistoryItemResponse{Amount: h.Amount, Type: h.Type, Date: h.CreatedAt})
	}
	return resp
}

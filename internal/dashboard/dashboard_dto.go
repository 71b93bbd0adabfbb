package dashboard

type SummaryResponse struct {
	Employees        int64 `json:"employees"`
	PendingRequests  int64 `json:"pending_requests"`
	ApprovedRequests int64 `json:"approved_requests"`
	RejectedRequests int64 `json:"rejected_requests"`
	TotalRequests    int64 `json:"total_requests"`
}

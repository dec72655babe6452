package profile

// UpdateReq carries only the fields being changed.
type UpdateReq struct {
	FullName *string `json:"full_name"`
	Username *string `json:"username"`
}

type AvailabilityResp struct {
	Available bool `json:"available"`
}

package dto

// ── doctor DTOs ──

// DoctorListRequest doctor list query
type DoctorListRequest struct {
	PaginationRequest
	Specialization     string `form:"specialization"      binding:"omitempty,max=100"`
	AvailabilityStatus string `form:"availability_status" binding:"omitempty,oneof=Available Busy Unavailable"`
}

// UpdateDoctorRequest partial profile update
type UpdateDoctorRequest struct {
	Specialization     *string  `json:"specialization"      binding:"omitempty,max=100"`
	LicenseNumber      *string  `json:"license_number"      binding:"omitempty,max=50"`
	ConsultationFee    *float64 `json:"consultation_fee"    binding:"omitempty,min=0"`
	AvailabilityStatus *string  `json:"availability_status" binding:"omitempty,oneof=Available Busy Unavailable"`
	ApprovalStatus     *string  `json:"approval_status"     binding:"omitempty,oneof=Pending Approved Rejected"`
}

// DoctorResponse doctor profile
type DoctorResponse struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	Specialization     string  `json:"specialization"`
	LicenseNumber      string  `json:"license_number"`
	ConsultationFee    float64 `json:"consultation_fee"`
	AvailabilityStatus string  `json:"availability_status"`
	ApprovalStatus     string  `json:"approval_status"`
	Version            int     `json:"version"`
	CreatedAt          string  `json:"created_at"`
}

// DoctorBrief doctor summary embedded in appointments
type DoctorBrief struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

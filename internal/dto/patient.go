package dto

// ── patient DTOs ──

// PatientListRequest patient list query
type PatientListRequest struct {
	PaginationRequest
	Search string `form:"search" binding:"omitempty,max=100"`
}

// PatientResponse patient profile
type PatientResponse struct {
	ID                    string  `json:"id"`
	UserID                *string `json:"user_id,omitempty"`
	PatientCode           string  `json:"patient_code"`
	FullName              string  `json:"full_name"`
	DateOfBirth           *string `json:"date_of_birth,omitempty"`
	Gender                *string `json:"gender,omitempty"`
	BloodType             *string `json:"blood_type,omitempty"`
	Phone                 *string `json:"phone,omitempty"`
	Email                 *string `json:"email,omitempty"`
	EmergencyContactName  *string `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string `json:"emergency_contact_phone,omitempty"`
	Status                string  `json:"status"`
	CreatedAt             string  `json:"created_at"`
}

// PatientBrief patient summary embedded in appointments
type PatientBrief struct {
	ID          string `json:"id"`
	PatientCode string `json:"patient_code"`
	FullName    string `json:"full_name"`
}

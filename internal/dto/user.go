package dto

// ── user DTOs ──

// CreateUserRequest creates an account. Doctor and Patient accounts need
// the matching profile block.
type CreateUserRequest struct {
	Name     string                 `json:"name"     binding:"required,min=2,max=100"`
	Email    string                 `json:"email"    binding:"required,email,max=255"`
	Password string                 `json:"password" binding:"required,min=8,max=72"`
	Role     string                 `json:"role"     binding:"required,oneof=Admin Doctor Patient"`
	Doctor   *DoctorProfileRequest  `json:"doctor"`
	Patient  *PatientProfileRequest `json:"patient"`
}

// DoctorProfileRequest doctor profile fields
type DoctorProfileRequest struct {
	Specialization  string  `json:"specialization"   binding:"required,max=100"`
	LicenseNumber   string  `json:"license_number"   binding:"required,max=50"`
	ConsultationFee float64 `json:"consultation_fee" binding:"omitempty,min=0"`
}

// PatientProfileRequest patient profile fields
type PatientProfileRequest struct {
	DateOfBirth           *string `json:"date_of_birth"           binding:"omitempty,datetime=2006-01-02"`
	Gender                *string `json:"gender"                  binding:"omitempty,oneof=Male Female Other"`
	BloodType             *string `json:"blood_type"              binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Phone                 *string `json:"phone"                   binding:"omitempty,max=30"`
	EmergencyContactName  *string `json:"emergency_contact_name"  binding:"omitempty,max=150"`
	EmergencyContactPhone *string `json:"emergency_contact_phone" binding:"omitempty,max=30"`
}

// UserListRequest user list query
type UserListRequest struct {
	PaginationRequest
	Role string `form:"role" binding:"omitempty,oneof=Admin Doctor Patient"`
}

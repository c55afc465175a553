package model

import "time"

// Roles
const (
	RoleAdmin   = "Admin"
	RoleDoctor  = "Doctor"
	RolePatient = "Patient"
)

// User login account (table users)
type User struct {
	UserID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	TenantID     string     `gorm:"type:uuid;not null"                             json:"tenant_id"`
	Name         string     `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string     `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string     `gorm:"type:varchar(20);not null"                      json:"role"`
	IsActive     bool       `gorm:"not null;default:true"                          json:"is_active"`
	LastLoginAt  *time.Time `                                                      json:"last_login_at,omitempty"`
	VersionedModel
}

// TableName table name
func (User) TableName() string { return "users" }

// Doctor profile (table doctors)
type Doctor struct {
	DoctorID           string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"doctor_id"`
	TenantID           string  `gorm:"type:uuid;not null"                             json:"tenant_id"`
	UserID             string  `gorm:"type:uuid;not null"                             json:"user_id"`
	Specialization     string  `gorm:"type:varchar(100);not null"                     json:"specialization"`
	LicenseNumber      string  `gorm:"type:varchar(50);not null"                      json:"license_number"`
	ConsultationFee    float64 `gorm:"type:numeric(10,2);not null;default:0"          json:"consultation_fee"`
	AvailabilityStatus string  `gorm:"type:varchar(20);not null;default:'Available'"  json:"availability_status"`
	ApprovalStatus     string  `gorm:"type:varchar(20);not null;default:'Approved'"   json:"approval_status"`
	VersionedModel

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName table name
func (Doctor) TableName() string { return "doctors" }

// Patient profile (table patients). UserID is set when the patient can log in.
type Patient struct {
	PatientID             string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"patient_id"`
	TenantID              string     `gorm:"type:uuid;not null"                             json:"tenant_id"`
	UserID                *string    `gorm:"type:uuid"                                      json:"user_id,omitempty"`
	PatientCode           string     `gorm:"type:varchar(30);not null"                      json:"patient_code"`
	FullName              string     `gorm:"type:varchar(150);not null"                     json:"full_name"`
	DateOfBirth           *time.Time `gorm:"type:date"                                      json:"date_of_birth,omitempty"`
	Gender                *string    `gorm:"type:varchar(10)"                               json:"gender,omitempty"`
	BloodType             *string    `gorm:"type:varchar(5)"                                json:"blood_type,omitempty"`
	Phone                 *string    `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	Email                 *string    `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	EmergencyContactName  *string    `gorm:"type:varchar(150)"                              json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `gorm:"type:varchar(30)"                               json:"emergency_contact_phone,omitempty"`
	Status                string     `gorm:"type:varchar(20);not null;default:'Active'"     json:"status"`
	VersionedModel
}

// TableName table name
func (Patient) TableName() string { return "patients" }

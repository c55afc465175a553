package model

// Tenant healthcare organization (table tenants)
type Tenant struct {
	TenantID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"tenant_id"`
	Name     string  `gorm:"type:varchar(200);not null"                     json:"name"`
	Slug     string  `gorm:"type:varchar(100);not null"                     json:"slug"`
	Email    *string `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	Phone    *string `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	Status   string  `gorm:"type:varchar(20);not null;default:'Active'"     json:"status"`
	SoftDeleteModel
}

// TableName table name
func (Tenant) TableName() string { return "tenants" }

// SchedulingSettings per-tenant booking rules (table scheduling_settings)
type SchedulingSettings struct {
	TenantID           string `gorm:"type:uuid;primaryKey"                      json:"tenant_id"`
	MinDurationMinutes int    `gorm:"not null;default:15"                       json:"min_duration_minutes"`
	MaxDurationMinutes int    `gorm:"not null;default:180"                      json:"max_duration_minutes"`
	DefaultSlotMinutes int    `gorm:"not null;default:30"                       json:"default_slot_minutes"`
	BookingHorizonDays int    `gorm:"not null;default:90"                       json:"booking_horizon_days"`
	Timezone           string `gorm:"type:varchar(64);not null;default:'UTC'"   json:"timezone"`
	BaseModel
}

// TableName table name
func (SchedulingSettings) TableName() string { return "scheduling_settings" }

package dto

// ── organization DTOs ──

// RegisterCompanyRequest creates an organization with its first admin.
type RegisterCompanyRequest struct {
	CompanyName   string  `json:"company_name"   binding:"required,min=2,max=200"`
	Slug          string  `json:"slug"           binding:"required,min=2,max=100"`
	Email         *string `json:"email"          binding:"omitempty,email"`
	Phone         *string `json:"phone"          binding:"omitempty,max=30"`
	AdminName     string  `json:"admin_name"     binding:"required,min=2,max=100"`
	AdminEmail    string  `json:"admin_email"    binding:"required,email,max=255"`
	AdminPassword string  `json:"admin_password" binding:"required,min=8,max=72"`
	Timezone      string  `json:"timezone"       binding:"omitempty,max=64"`
}

// UpdateSettingsRequest partial update of scheduling settings
type UpdateSettingsRequest struct {
	MinDurationMinutes *int    `json:"min_duration_minutes" binding:"omitempty,min=5,max=1440"`
	MaxDurationMinutes *int    `json:"max_duration_minutes" binding:"omitempty,min=5,max=1440"`
	DefaultSlotMinutes *int    `json:"default_slot_minutes" binding:"omitempty,min=5,max=480"`
	BookingHorizonDays *int    `json:"booking_horizon_days" binding:"omitempty,min=1,max=730"`
	Timezone           *string `json:"timezone"             binding:"omitempty,max=64"`
}

// TenantResponse organization info
type TenantResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Slug      string            `json:"slug"`
	Email     *string           `json:"email,omitempty"`
	Phone     *string           `json:"phone,omitempty"`
	Status    string            `json:"status"`
	Settings  *SettingsResponse `json:"settings,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// SettingsResponse scheduling settings
type SettingsResponse struct {
	MinDurationMinutes int    `json:"min_duration_minutes"`
	MaxDurationMinutes int    `json:"max_duration_minutes"`
	DefaultSlotMinutes int    `json:"default_slot_minutes"`
	BookingHorizonDays int    `json:"booking_horizon_days"`
	Timezone           string `json:"timezone"`
}

// RegisterCompanyResponse registration result with tokens for the admin
type RegisterCompanyResponse struct {
	Tenant TenantResponse `json:"tenant"`
	Token  TokenResponse  `json:"token"`
}

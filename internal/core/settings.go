package core

import "maps"

const (
	English Language = "en"
	Hindi   Language = "hi"
)

type (
	Language string

	// Rates maps equipment to its current hourly price.
	Rates map[Equipment]Money

	// ServiceIntervals maps equipment to the recommended re-service period in days.
	ServiceIntervals map[Equipment]int

	// Settings is the per-account singleton. Logo and Signature hold
	// base64-encoded images.
	Settings struct {
		UserName         string           `json:"userName"`
		TractorName      string           `json:"tractorName"`
		Logo             string           `json:"logo"`
		Signature        string           `json:"signature"`
		Rates            Rates            `json:"rates"`
		Language         Language         `json:"language"`
		ServiceIntervals ServiceIntervals `json:"serviceIntervals"`
		IsAdmin          bool             `json:"isAdmin,omitempty"`
		Email            string           `json:"email,omitempty"`
	}

	// SettingsPatch carries a partial settings update. Nil fields are left
	// unchanged; map entries are merged key by key.
	SettingsPatch struct {
		UserName         *string          `json:"userName,omitempty"`
		TractorName      *string          `json:"tractorName,omitempty"`
		Logo             *string          `json:"logo,omitempty"`
		Signature        *string          `json:"signature,omitempty"`
		Rates            Rates            `json:"rates,omitempty"`
		Language         *Language        `json:"language,omitempty"`
		ServiceIntervals ServiceIntervals `json:"serviceIntervals,omitempty"`
		IsAdmin          *bool            `json:"isAdmin,omitempty"`
		Email            *string          `json:"email,omitempty"`
	}
)

func (l Language) IsValid() bool {
	return l == English || l == Hindi
}

// DefaultSettings mirrors the values offered during onboarding.
func DefaultSettings() Settings {
	return Settings{
		Rates: Rates{
			Rotavator: MoneyFromInt(1000),
			TangHar:   MoneyFromInt(1200),
		},
		Language: English,
		ServiceIntervals: ServiceIntervals{
			Rotavator: 30,
			TangHar:   45,
		},
	}
}

// Rate returns the configured hourly price for e.
func (r Rates) Rate(e Equipment) (Money, bool) {
	m, ok := r[e]
	return m, ok
}

func (s Settings) Clone() Settings {
	s.Rates = maps.Clone(s.Rates)
	s.ServiceIntervals = maps.Clone(s.ServiceIntervals)
	return s
}

func (s Settings) normalize() Settings {
	if s.Rates == nil {
		s.Rates = Rates{}
	}
	if s.ServiceIntervals == nil {
		s.ServiceIntervals = ServiceIntervals{}
	}
	if s.Language == "" {
		s.Language = English
	}
	return s
}

// Validate checks the fields a patch is allowed to set.
func (p SettingsPatch) Validate() error {
	for e, r := range p.Rates {
		if !e.IsValid() {
			return Invalid("rates", ErrInvalidEquipment)
		}
		if r.IsNegative() {
			return Invalid("rates", ErrInvalidAmount)
		}
	}
	for e, days := range p.ServiceIntervals {
		if !e.IsValid() {
			return Invalid("serviceIntervals", ErrInvalidEquipment)
		}
		if days < 0 {
			return &ValidationError{Field: "serviceIntervals", Reason: "interval must not be negative"}
		}
	}
	if p.Language != nil && !p.Language.IsValid() {
		return Invalid("language", ErrInvalidLanguage)
	}
	if p.UserName != nil && len(*p.UserName) > 100 {
		return &ValidationError{Field: "userName", Reason: "too long (max 100 characters)"}
	}
	if p.TractorName != nil && len(*p.TractorName) > 100 {
		return &ValidationError{Field: "tractorName", Reason: "too long (max 100 characters)"}
	}
	return nil
}

// Apply returns s with every non-nil field of p applied.
func (s Settings) Apply(p SettingsPatch) Settings {
	out := s.Clone().normalize()
	if p.UserName != nil {
		out.UserName = *p.UserName
	}
	if p.TractorName != nil {
		out.TractorName = *p.TractorName
	}
	if p.Logo != nil {
		out.Logo = *p.Logo
	}
	if p.Signature != nil {
		out.Signature = *p.Signature
	}
	maps.Copy(out.Rates, p.Rates)
	if p.Language != nil {
		out.Language = *p.Language
	}
	maps.Copy(out.ServiceIntervals, p.ServiceIntervals)
	if p.IsAdmin != nil {
		out.IsAdmin = *p.IsAdmin
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	return out
}

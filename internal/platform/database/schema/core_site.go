package schema

// CoreSiteTable represents the 'core.site' table
type CoreSiteTable struct {
	Table                      string
	ID                         string
	AliasKey                   string
	DisplayName                string
	Theme                      string
	UseEmailForLogin           string
	AllowPersistentLogin       string
	DisableDbAuth              string
	CaptchaOnLogin             string
	MaxInvalidPasswordAttempts string
	LockoutMinutes             string
	AllowNewRegistration       string
	RequireConfirmedEmail      string
	RequireApproval            string
	CaptchaOnRegistration      string
	RegistrationPreamble       string
	RegistrationAgreement      string
	ApprovalEmailCsv           string
	AllowedProviders           string
	CreatedAt                  string
	UpdatedAt                  string
}

// CoreSite is the schema definition for core.site
var CoreSite = CoreSiteTable{
	Table:                      "core.site",
	ID:                         "id",
	AliasKey:                   "aliaskey",
	DisplayName:                "displayname",
	Theme:                      "theme",
	UseEmailForLogin:           "useemailforlogin",
	AllowPersistentLogin:       "allowpersistentlogin",
	DisableDbAuth:              "disabledbauth",
	CaptchaOnLogin:             "captchaonlogin",
	MaxInvalidPasswordAttempts: "maxinvalidpasswordattempts",
	LockoutMinutes:             "lockoutminutes",
	AllowNewRegistration:       "allownewregistration",
	RequireConfirmedEmail:      "requireconfirmedemail",
	RequireApproval:            "requireapproval",
	CaptchaOnRegistration:      "captchaonregistration",
	RegistrationPreamble:       "registrationpreamble",
	RegistrationAgreement:      "registrationagreement",
	ApprovalEmailCsv:           "approvalemailcsv",
	AllowedProviders:           "allowedproviders",
	CreatedAt:                  "createdat",
	UpdatedAt:                  "updatedat",
}

// Columns returns all standard column names
func (t CoreSiteTable) Columns() []string {
	return []string{
		t.ID, t.AliasKey, t.DisplayName, t.Theme,
		t.UseEmailForLogin, t.AllowPersistentLogin, t.DisableDbAuth, t.CaptchaOnLogin,
		t.MaxInvalidPasswordAttempts, t.LockoutMinutes,
		t.AllowNewRegistration, t.RequireConfirmedEmail, t.RequireApproval, t.CaptchaOnRegistration,
		t.RegistrationPreamble, t.RegistrationAgreement, t.ApprovalEmailCsv, t.AllowedProviders,
		t.CreatedAt, t.UpdatedAt,
	}
}

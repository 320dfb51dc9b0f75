package schema

// CoreSiteHostTable represents the 'core.sitehost' table
type CoreSiteHostTable struct {
	Table     string
	Hostname  string
	SiteID    string
	CreatedAt string
}

var CoreSiteHost = CoreSiteHostTable{
	Table:     "core.sitehost",
	Hostname:  "hostname",
	SiteID:    "siteid",
	CreatedAt: "createdat",
}

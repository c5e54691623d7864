package domain

// NavEntry is one navigation item the gateway exposes to the UI. Required
// lists the roles that may see the entry; empty means everyone signed in.
type NavEntry struct {
	Label    string   `json:"label"`
	Path     string   `json:"path"`
	Required []string `json:"-"`
}

// DefaultNav is the platform's navigation tree. Entries are filtered per
// user before they leave the gateway; a failed role check drops the entry
// silently.
var DefaultNav = []NavEntry{
	{Label: "Dashboard", Path: "/"},
	{Label: "Tasks", Path: "/tasks"},
	{Label: "Community", Path: "/community"},
	{Label: "Mentorship", Path: "/mentorship", Required: []string{RoleMentor, RoleAdmin}},
	{Label: "Moderation", Path: "/moderation", Required: []string{RoleModerator, RoleAdmin}},
	{Label: "Admin", Path: "/admin", Required: []string{RoleAdmin}},
}

package auth

// NavEntry is a single item of a role's dashboard menu.
type NavEntry struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

var navigation = map[Role][]NavEntry{
	RoleStudent: {
		{Path: "/student", Label: "Dashboard"},
		{Path: "/student/activity", Label: "Activity"},
		{Path: "/student/project", Label: "Project"},
		{Path: "/student/certification", Label: "Certification"},
		{Path: "/student/profile", Label: "Profile"},
	},
	RoleLecturer: {
		{Path: "/lecturer", Label: "Dashboard"},
		{Path: "/lecturer/courses", Label: "Courses"},
		{Path: "/lecturer/students", Label: "Students"},
		{Path: "/lecturer/assessments", Label: "Assessments"},
		{Path: "/lecturer/schedule", Label: "Schedule"},
		{Path: "/lecturer/profile", Label: "Profile"},
	},
	RoleProdi: {
		{Path: "/prodi", Label: "Dashboard"},
		{Path: "/prodi/curriculum", Label: "Curriculum"},
		{Path: "/prodi/students", Label: "Students"},
		{Path: "/prodi/lecturers", Label: "Lecturers"},
		{Path: "/prodi/reports", Label: "Reports"},
		{Path: "/prodi/profile", Label: "Profile"},
	},
	RoleIndustry: {
		{Path: "/industry", Label: "Dashboard"},
		{Path: "/industry/internships", Label: "Internships"},
		{Path: "/industry/projects", Label: "Projects"},
		{Path: "/industry/students", Label: "Student Profiles"},
		{Path: "/industry/opportunities", Label: "Opportunities"},
		{Path: "/industry/profile", Label: "Profile"},
	},
	RoleAdmin: {
		{Path: "/admin", Label: "Dashboard"},
		{Path: "/admin/users", Label: "Users"},
		{Path: "/admin/departments", Label: "Departments"},
		{Path: "/admin/system", Label: "System"},
		{Path: "/admin/profile", Label: "Profile"},
	},
}

// Navigation returns the ordered menu for role. Unknown roles get an empty menu.
// The returned slice is a copy and may be modified by the caller.
func Navigation(role Role) []NavEntry {
	entries := navigation[role]
	out := make([]NavEntry, len(entries))
	copy(out, entries)
	return out
}

// DefaultPath returns the index view of a role's dashboard.
func DefaultPath(role Role) string {
	return "/" + string(role)
}

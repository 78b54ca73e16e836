package authz

import "github.com/victornm/scholarway/internal/domain"

// DefaultPermissions returns the compiled-in permission table. Everything is enabled.
func DefaultPermissions() domain.PermissionTable {
	return domain.PermissionTable{
		domain.RoleAdmin: {
			Dashboard: perm("admin-dashboard", "Admin Dashboard", "Access to admin dashboard"),
			Features: map[string]domain.Permission{
				"userSection":           perm("admin-user-section", "User Section", "User management functionality"),
				"contentReview":         perm("admin-content-review", "Content Review", "Review and approve content"),
				"approvals":             perm("admin-approvals", "Approvals", "Approve requests"),
				"studentClassification": perm("admin-student-classification", "Student Classification", "Manage student classification"),
				"aiLearning":            perm("admin-ai-learning", "AI Learning", "Manage AI learning assistance"),
				"systemStatus":          perm("admin-system-status", "System Status", "View system status"),
			},
		},
		domain.RoleTeacher: {
			Dashboard: perm("teacher-dashboard", "Teacher Dashboard", "Access to teacher dashboard"),
			Features: map[string]domain.Permission{
				"materials": perm("teacher-materials", "Study Materials", "Manage study materials"),
				"students":  perm("teacher-students", "Students", "View and manage students"),
				"exams":     perm("teacher-exams", "Exams", "Create and manage exams"),
			},
		},
		domain.RoleStudent: {
			Dashboard: perm("student-dashboard", "Student Dashboard", "Access to student dashboard"),
			Features: map[string]domain.Permission{
				"progress": perm("student-progress", "Progress", "View academic progress"),
				"tests":    perm("student-tests", "Upcoming Tests", "View upcoming tests"),
			},
		},
	}
}

func perm(id, name, desc string) domain.Permission {
	return domain.Permission{
		ID:          id,
		Name:        name,
		Description: desc,
		Enabled:     true,
	}
}

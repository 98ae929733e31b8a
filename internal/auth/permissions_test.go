package auth

import "testing"

func TestHasPermission(t *testing.T) {
	all := []Permission{
		PermDeviceRead, PermExport, PermDeviceWrite,
		PermImport, PermDeviceDelete, PermMaintenance,
	}

	tests := []struct {
		role   Role
		should []Permission
	}{
		{RoleViewer, []Permission{PermDeviceRead, PermExport}},
		{RoleOperator, []Permission{PermDeviceRead, PermExport, PermDeviceWrite, PermImport}},
		{RoleAdmin, all},
		{Role("unknown"), nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			granted := map[Permission]bool{}
			for _, p := range tt.should {
				granted[p] = true
			}
			for _, perm := range all {
				if got := HasPermission(tt.role, perm); got != granted[perm] {
					t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, perm, got, granted[perm])
				}
			}
		})
	}
}

func TestPermissionsForRole(t *testing.T) {
	perms := PermissionsForRole(RoleViewer)
	if len(perms) != 2 {
		t.Fatalf("viewer permissions = %v", perms)
	}

	// Mutating the copy must not change the mapping.
	perms[0] = PermMaintenance
	if HasPermission(RoleViewer, PermMaintenance) {
		t.Error("PermissionsForRole returned the shared slice")
	}

	if PermissionsForRole(Role("unknown")) != nil {
		t.Error("unknown role should have no permissions")
	}
}

func TestPrincipalCan(t *testing.T) {
	var nobody *Principal
	if nobody.Can(PermDeviceRead) {
		t.Error("nil principal should have no permissions")
	}

	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%s) = false", r)
		}
	}
	if IsValidRole(Role("panel")) {
		t.Error("IsValidRole(panel) = true")
	}
}

package access

import "strings"

// Company is the tenant-scoped company a request acts on.
type Company struct {
	ID             int64  `json:"id"`
	TenantID       int64  `json:"tenant_id"`
	Name           string `json:"name"`
	AccountingMode string `json:"accounting_mode"`
	IsActive       bool   `json:"is_active"`
}

// Request asks whether UserID may exercise Permission on the company.
type Request struct {
	TenantID   int64
	CompanyID  int64
	UserID     int64
	Permission string
}

// Grant is the resolved actor context for an authorised request.
type Grant struct {
	ActorID    int64   `json:"actor_id"`
	Permission string  `json:"permission"`
	Company    Company `json:"company"`
}

func hasPermission(granted []string, want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	for _, p := range granted {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == want || p == "*" {
			return true
		}
		if strings.HasSuffix(p, ".*") && strings.HasPrefix(want, strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}

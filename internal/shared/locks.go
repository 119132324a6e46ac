package shared

import "fmt"

// AccessGrantKey builds redis keys for cached access grants.
func AccessGrantKey(tenantID, companyID, userID int64, permission string) string {
	return fmt.Sprintf("access:tenant:%d:company:%d:user:%d:%s", tenantID, companyID, userID, permission)
}

// AccessCompanyPattern matches every cached grant for a company.
func AccessCompanyPattern(tenantID, companyID int64) string {
	return fmt.Sprintf("access:tenant:%d:company:%d:*", tenantID, companyID)
}

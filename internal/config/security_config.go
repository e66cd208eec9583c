// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityService                       // Access or service token
	SecurityAccess                        // User access token required
	SecurityApprover                      // User access token with the approver role
)

// Route names registered by the HTTP API.
const (
	RouteHealth          = "health"
	RouteCreatePeriod    = "billing.createPeriod"
	RouteListPeriods     = "billing.listPeriods"
	RouteGetPeriod       = "billing.getPeriod"
	RouteCalculatePeriod = "billing.calculatePeriod"
	RouteApprovePeriod   = "billing.approvePeriod"
	RouteGenerateInvoice = "billing.generateInvoice"
	RouteDeletePeriod    = "billing.deletePeriod"
	RouteListEvents      = "billing.listEvents"
	RoutePreview         = "billing.preview"
)

// EndpointSecurityConfig maps routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	RouteHealth: SecurityPublic,

	// Read-only and recalculation are open to system callers
	RouteListPeriods:     SecurityService,
	RouteGetPeriod:       SecurityService,
	RouteCalculatePeriod: SecurityService,
	RouteListEvents:      SecurityService,

	RouteCreatePeriod: SecurityAccess,
	RouteDeletePeriod: SecurityAccess,
	RoutePreview:      SecurityAccess,

	RouteApprovePeriod:   SecurityApprover,
	RouteGenerateInvoice: SecurityApprover,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityApprover
}

// Command tokengen mints bearer tokens signed with the configured JWT secret.
// Operators use it to provision the billing API's system callers and to hand
// out user tokens until an identity provider issues them.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/samber/lo"

	"rentbill-backend/internal/config"
	"rentbill-backend/internal/security"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	serviceName := flag.String("service", "", "Issue a service token for this caller name")
	userID := flag.Int("user", 0, "Issue an access token for this user id")
	email := flag.String("email", "", "Email carried by the access token")
	roles := flag.String("roles", security.RoleBillingClerk, "Comma separated roles")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	roleList := parseRoles(*roles)
	tokens := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())

	token, err := issue(tokens, *serviceName, int32(*userID), *email, roleList)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

func issue(tokens security.TokenManager, serviceName string, userID int32, email string, roles []string) (string, error) {
	switch {
	case serviceName != "" && userID != 0:
		return "", fmt.Errorf("-service and -user are mutually exclusive")
	case serviceName != "":
		return tokens.GenerateServiceToken(serviceName, roles)
	case userID > 0:
		return tokens.GenerateAccessToken(userID, email, roles)
	default:
		return "", fmt.Errorf("one of -service or a positive -user is required")
	}
}

func parseRoles(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(r string, _ int) string {
		return strings.TrimSpace(r)
	}))
}

// Command issue-token mints an operator token for local testing. Operators
// are managed by the external auth system; this only signs claims.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/pkg/jwt"
)

func main() {
	userID := flag.String("user", "", "operator id (random when empty)")
	name := flag.String("name", "operator", "operator display name")
	role := flag.String("role", model.RoleMasterAdmin, "role code: MASTER_ADMIN, ADMIN or CASHIER")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = jwt.DevSecret
	}

	privileges, ok := model.RolePrivileges[*role]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	id := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid user id: %v\n", err)
			os.Exit(2)
		}
		id = parsed
	}

	token, err := jwt.GenerateToken([]byte(secret), id, *name, *role, privileges, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

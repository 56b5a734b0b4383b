// Command admintoken prints an admin bearer token for the engine endpoints.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"SteamPM/internal/auth"
)

func main() {
	subject := flag.String("sub", "ops", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_JWT_SECRET is required")
		os.Exit(2)
	}

	tok, err := auth.NewTokenMaker(secret).New(*subject, auth.RoleAdmin, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

// Command hashpw prints an AUTH_PRINCIPALS entry for a principal.
//
//	hashpw <username> <email> <password>
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/config"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: hashpw <username> <email> <password>")
		os.Exit(2)
	}
	username, email, password := os.Args[1], os.Args[2], os.Args[3]
	if strings.ContainsAny(username+email, "|,") {
		log.Fatal("username and email must not contain '|' or ','")
	}

	cost := 12
	if cfg, err := config.Load(); err == nil {
		cost = cfg.Auth.BcryptCost
	}

	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	fmt.Printf("%s|%s|%s\n", username, email, hash)
}

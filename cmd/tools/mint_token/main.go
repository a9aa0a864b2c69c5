package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/Third-South-Capital/callscrape/internal/auth"
)

// Mints a short-lived admin bearer token for scripted access to the API.
// JWT_SECRET must match the server's.
func main() {
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	token, err := auth.GenerateAdminToken(*ttl)
	if err != nil {
		log.Fatalf("Failed to mint token: %v", err)
	}
	fmt.Println(token)
}

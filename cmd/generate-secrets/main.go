package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/vgnt/transport-portal/internal/utils"
)

func main() {
	driverPassword := flag.String("driver-password", "", "hash this password for DRIVER_PASSWORD_HASH")
	managementPassword := flag.String("management-password", "", "hash this password for MANAGEMENT_PASSWORD_HASH")
	cost := flag.Int("cost", 12, "bcrypt cost")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for VGNT Transport Portal")
	fmt.Println("===========================================")
	fmt.Println()

	secrets, err := utils.GeneratePortalSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secrets.JWTSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", secrets.JWTRefreshSecret)
	fmt.Printf("SESSION_SECRET=%s\n", secrets.SessionSecret)

	if *driverPassword != "" {
		hash, err := utils.HashPassword(*driverPassword, *cost)
		if err != nil {
			log.Fatalf("Failed to hash driver password: %v", err)
		}
		fmt.Printf("DRIVER_PASSWORD_HASH='%s'\n", hash)
	}
	if *managementPassword != "" {
		hash, err := utils.HashPassword(*managementPassword, *cost)
		if err != nil {
			log.Fatalf("Failed to hash management password: %v", err)
		}
		fmt.Printf("MANAGEMENT_PASSWORD_HASH='%s'\n", hash)
	}

	fmt.Println()
	fmt.Println("IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}

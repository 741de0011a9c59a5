package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"roomresq/backend/internal/auth"
	"roomresq/backend/internal/config"
	"roomresq/backend/internal/models"
	"roomresq/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("  create-staff <email> <name> <password>")
	fmt.Println("  promote <email>")
	fmt.Println("  list-staff")
	fmt.Println("  history <complaint_id>")
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = config.DSNFromParts()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	if err := storageSvc.Migrate(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
	}
	ctx := context.Background()

	switch os.Args[1] {
	case "create-staff":
		if len(os.Args) != 5 {
			usage()
		}
		u, err := createStaff(ctx, storageSvc, os.Args[2], os.Args[3], os.Args[4])
		if err != nil {
			log.Fatalf("Error creating staff account: %v", err)
		}
		fmt.Printf("Staff account %s created for %s.\n", u.ID, u.Email)
	case "promote":
		if len(os.Args) != 3 {
			usage()
		}
		if err := promote(ctx, storageSvc, os.Args[2]); err != nil {
			log.Fatalf("Error promoting user: %v", err)
		}
		fmt.Printf("User %s now has the staff role.\n", os.Args[2])
	case "list-staff":
		staff, err := storageSvc.ListStaff(ctx)
		if err != nil {
			log.Fatalf("Error listing staff: %v", err)
		}
		for _, u := range staff {
			fmt.Printf("%s\t%s\t%s\n", u.ID, u.Email, u.DisplayName)
		}
	case "history":
		if len(os.Args) != 3 {
			usage()
		}
		history, err := storageSvc.ListHistory(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Error reading history: %v", err)
		}
		for _, h := range history {
			comment := ""
			if h.Comment != nil {
				comment = *h.Comment
			}
			fmt.Printf("%s\t%s\t%s -> %s\t%s\n", h.CreatedAt.Format("2006-01-02 15:04"), h.ChangedBy, h.PreviousStatus, h.NewStatus, comment)
		}
	default:
		fmt.Println("Unknown command")
		usage()
	}
}

// createStaff inserts a verified staff account, bypassing e-mail verification.
func createStaff(ctx context.Context, s storage.UserStore, email, name, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < config.MinPasswordLength || len(password) > config.MaxPasswordLength {
		return nil, fmt.Errorf("password must be %d to %d characters", config.MinPasswordLength, config.MaxPasswordLength)
	}
	hash, err := auth.NewBcryptHasher(0).Hash(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(name),
		Roles:        pq.StringArray{string(models.RoleStaff)},
		PasswordHash: hash,
		Verified:     true,
	}
	if err := s.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func promote(ctx context.Context, s storage.UserStore, email string) error {
	u, err := s.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if u.IsStaff() {
		return nil
	}
	roles, _ := models.NormalizeRoles(append([]string(u.Roles), string(models.RoleStaff)))
	u.Roles = roles
	return s.SaveUser(ctx, u)
}

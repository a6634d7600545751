package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/wirebird/crm/internal/stage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, accounts and leads for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		_, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"leads", "accounts", "users"} {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)

		seedUsers := []struct {
			fullName string
			email    string
			role     string
		}{
			{"Asha Verma", "asha.admin@wirebird.io", "Admin"},
			{"Rohit Bedi", "rohit.bd@wirebird.io", "BD"},
			{"Sneha Rao", "sneha.sales@wirebird.io", "Sales"},
			{"Tarun Iyer", "tarun.tc@wirebird.io", "Telecaller"},
			{"Ira Joshi", "ira.intern@wirebird.io", "Intern"},
		}

		userIDs := map[string]int64{}
		for _, u := range seedUsers {
			var exists int
			err := db.Get(&exists, "SELECT 1 FROM users WHERE email = $1", u.email)
			if err == nil {
				fmt.Println("user already exists:", u.email)
				var id int64
				if err := db.Get(&id, "SELECT id FROM users WHERE email = $1", u.email); err == nil {
					userIDs[u.role] = id
				}
				continue
			}

			var id int64
			err = db.QueryRow(`
				INSERT INTO users (full_name, email, password_hash, role, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, 'active', now(), now()) RETURNING id`,
				u.fullName, u.email, string(hash), u.role).Scan(&id)
			if err != nil {
				log.Fatalf("failed to insert user %s: %v", u.email, err)
			}
			userIDs[u.role] = id
			fmt.Println("Seeded user:", u.email)
		}

		seedAccounts := []struct {
			name     string
			industry string
		}{
			{"Acme Manufacturing", "Manufacturing"},
			{"Globex Retail", "Retail"},
			{"Initech Software", "Software"},
		}

		accountIDs := map[string]int64{}
		for _, a := range seedAccounts {
			var exists int
			if err := db.Get(&exists, "SELECT 1 FROM accounts WHERE name = $1", a.name); err == nil {
				fmt.Println("account already exists:", a.name)
				var id int64
				if err := db.Get(&id, "SELECT id FROM accounts WHERE name = $1", a.name); err == nil {
					accountIDs[a.name] = id
				}
				continue
			}

			var id int64
			err := db.QueryRow(`
				INSERT INTO accounts (name, industry, created_at, updated_at)
				VALUES ($1, $2, now(), now()) RETURNING id`,
				a.name, a.industry).Scan(&id)
			if err != nil {
				log.Fatalf("failed to insert account %s: %v", a.name, err)
			}
			accountIDs[a.name] = id
			fmt.Println("Seeded account:", a.name)
		}

		seedLeads := []struct {
			company string
			contact string
			stageID int
			account string
		}{
			{"Acme Manufacturing", "Vikram Shah", stage.Sourcing, "Acme Manufacturing"},
			{"Acme Manufacturing", "Meera Patel", stage.Telecalling, "Acme Manufacturing"},
			{"Globex Retail", "Arjun Singh", stage.Demo, "Globex Retail"},
			{"Globex Retail", "Kavya Menon", stage.Proposal, "Globex Retail"},
			{"Initech Software", "Dev Kapoor", stage.ClosedWon, "Initech Software"},
		}

		creator := userIDs["Admin"]
		assignee := userIDs["Sales"]
		for _, l := range seedLeads {
			var exists int
			err := db.Get(&exists,
				"SELECT 1 FROM leads WHERE company = $1 AND contact_name = $2", l.company, l.contact)
			if err == nil {
				fmt.Println("lead already exists:", l.contact)
				continue
			}

			_, err = db.Exec(`
				INSERT INTO leads (account_id, company, contact_name, stage_id, assigned_user_id, created_by_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
				accountIDs[l.account], l.company, l.contact, l.stageID, assignee, creator)
			if err != nil {
				log.Fatalf("failed to insert lead %s: %v", l.contact, err)
			}
			fmt.Println("Seeded lead:", l.contact)
		}

		fmt.Println("Seeding complete")
	},
}

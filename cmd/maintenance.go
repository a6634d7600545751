package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/internal/maintenance"
	"github.com/wirebird/crm/pkg/logger"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Data repair and diagnostic commands",
	Long:  `One-off maintenance operations: duplicate lead cleanup, operator password resets and table diagnostics.`,
}

var (
	dedupeApply   bool
	resetEmail    string
	resetPassword string
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find (and optionally remove) duplicate leads",
	Run: func(cmd *cobra.Command, args []string) {
		svc := maintenanceService()
		ctx, cancel := internal.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		removed, err := svc.DedupeLeads(ctx, dedupeApply)
		if err != nil {
			log.Fatalf("dedupe failed: %v", err)
		}
		fmt.Printf("removed %d duplicate leads\n", removed)
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset an operator's password by email",
	Run: func(cmd *cobra.Command, args []string) {
		if resetEmail == "" || resetPassword == "" {
			log.Fatal("both --email and --password are required")
		}
		svc := maintenanceService()
		ctx, cancel := internal.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := svc.ResetPassword(ctx, resetEmail, resetPassword); err != nil {
			log.Fatalf("reset failed: %v", err)
		}
		fmt.Println("password updated for", resetEmail)
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Print a table health summary",
	Run: func(cmd *cobra.Command, args []string) {
		svc := maintenanceService()
		ctx, cancel := internal.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		diagnosis, err := svc.Diagnose(ctx)
		if err != nil {
			log.Fatalf("diagnose failed: %v", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diagnosis); err != nil {
			log.Fatalf("encode diagnosis: %v", err)
		}
	},
}

func maintenanceService() *maintenance.Service {
	cfg, err := loadConfig(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	_, db, err := initDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	return maintenance.NewService(db, logger.LoggerWrapper(), cfg.Security.BCryptCost)
}

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeApply, "apply", false, "Actually remove duplicates instead of reporting them")
	resetPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "Operator email")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "Replacement password")

	maintenanceCmd.AddCommand(dedupeCmd)
	maintenanceCmd.AddCommand(resetPasswordCmd)
	maintenanceCmd.AddCommand(diagnoseCmd)
}

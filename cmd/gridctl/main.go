package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"staffing-grid/internal/erp"
)

func main() {
	rootCmd := SetupCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func SetupCommands() *cobra.Command {
	var baseURL string
	var week, year int

	rootCmd := &cobra.Command{
		Use:   "gridctl",
		Short: "Manage the staffing grid from the command line",
	}
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "staffing grid API base URL")

	addWeekFlags := func(cmd *cobra.Command) {
		now := time.Now()
		defYear, defWeek := now.ISOWeek()
		cmd.Flags().IntVar(&week, "week", defWeek, "ISO week number")
		cmd.Flags().IntVar(&year, "year", defYear, "ISO week year")
	}

	approveCmd := &cobra.Command{
		Use:   "approve-week [approver-id]",
		Short: "Approve every submitted entry in a week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewAPIClient(baseURL)
			if err != nil {
				return err
			}
			n, err := client.ApproveWeek(week, year, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Approved %d entries for week %d/%d.\n", n, week, year)
			return nil
		},
	}
	addWeekFlags(approveCmd)

	sendCmd := &cobra.Command{
		Use:   "send-week",
		Short: "Send a week's approved entries to the payroll system",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewAPIClient(baseURL)
			if err != nil {
				return err
			}
			res, err := client.SendWeek(week, year)
			if err != nil {
				return err
			}
			fmt.Printf("Sent %d entries for week %d/%d.\n", res.Sent, week, year)
			if res.Failed > 0 {
				fmt.Printf("%d entries failed; most common cause: %s.\n", res.Failed, erp.Describe(res.TopFailure))
				for cat, n := range res.Categories {
					fmt.Printf("  %3d x %s\n", n, erp.Describe(cat))
				}
			}
			return nil
		},
	}
	addWeekFlags(sendCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify-week",
		Short: "Check which synced entries the payroll system still knows about",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewAPIClient(baseURL)
			if err != nil {
				return err
			}
			res, err := client.VerifyWeek(week, year)
			if err != nil {
				return err
			}
			fmt.Printf("Week %d/%d: %d entries verified (%.2f h), %d missing externally (%.2f h).\n",
				week, year, len(res.Verified), res.VerifiedHours, len(res.NotFound), res.NotFoundHours)
			for _, row := range res.NotFound {
				fmt.Printf("  missing: entry %s (ref %s, %.2f h)\n", row.EntryID, row.ERPRef, row.Hours)
			}
			for _, row := range res.Unchecked {
				fmt.Printf("  unchecked: entry %s (ref %s, %.2f h): lookup failed, retry later\n", row.EntryID, row.ERPRef, row.Hours)
			}
			return nil
		},
	}
	addWeekFlags(verifyCmd)

	recallCmd := &cobra.Command{
		Use:   "recall [entry-id]",
		Short: "Delete an entry's external record and revert it to draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewAPIClient(baseURL)
			if err != nil {
				return err
			}
			if err := client.RecallEntry(args[0]); err != nil {
				return err
			}
			fmt.Printf("Entry %s recalled; it is editable again.\n", args[0])
			return nil
		},
	}

	unapproveCmd := &cobra.Command{
		Use:   "unapprove [entry-id...]",
		Short: "Revoke approval for one or more entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewAPIClient(baseURL)
			if err != nil {
				return err
			}
			if err := client.UnapproveEntries(args); err != nil {
				return err
			}
			fmt.Printf("Unapproved %d entries.\n", len(args))
			return nil
		},
	}

	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(unapproveCmd)

	return rootCmd
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/apiclient"
)

var (
	apiAddr      string
	reminderUser string
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Inspect and acknowledge reminders of a running bot",
	Long: `Reminders only live inside the running bot, so these commands talk to
its HTTP API (API_ADDR, or --api-addr).`,
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		reminders, err := client.Reminders(cmd.Context(), reminderUser)
		if err != nil {
			return err
		}
		if len(reminders) == 0 {
			fmt.Println("No reminders.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSER\tKEYWORD\tSTATUS\tFIRED\tNEXT")
		for _, r := range reminders {
			next := "-"
			if !r.NextReminderAt.IsZero() {
				next = r.NextReminderAt.Local().Format(time.DateTime)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", r.ReminderID, r.UserID, r.Keyword, r.Status, r.ReminderCount, next)
		}
		return w.Flush()
	},
}

var remindersAckCmd = &cobra.Command{
	Use:   "ack <user-id>",
	Short: "Acknowledge the reminders of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		res, err := client.Acknowledge(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(res.Summary)
		return nil
	},
}

func init() {
	remindersCmd.PersistentFlags().StringVar(&apiAddr, "api-addr", "", "address of the bot API (default API_ADDR)")
	remindersListCmd.Flags().StringVarP(&reminderUser, "user", "u", "", "only reminders of this user")
	remindersCmd.AddCommand(remindersListCmd, remindersAckCmd)
}

func newAPIClient() (*apiclient.Client, error) {
	if apiAddr != "" {
		return apiclient.NewClient(apiAddr), nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return apiclient.NewClient(cfg.API.Addr), nil
}

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
)

var keywordUser string

var keywordsCmd = &cobra.Command{
	Use:     "keywords",
	Aliases: []string{"kw"},
	Short:   "Manage keywords and group subscriptions",
	Long: `Edit the keyword registry directly. Without --user the global keywords
are used; with --user the personal keywords of that user.

A running bot picks up changes on the next message.`,
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keywords",
	Args:  cobra.NoArgs,
	RunE: withStore(func(ctx context.Context, store repo.KeywordStore, args []string) error {
		var (
			keywords []string
			err      error
		)
		if keywordUser != "" {
			keywords, err = store.PersonalKeywords(ctx, keywordUser)
		} else {
			keywords, err = store.GlobalKeywords(ctx)
		}
		if err != nil {
			return err
		}
		if len(keywords) == 0 {
			fmt.Println("No keywords.")
			return nil
		}
		for _, kw := range keywords {
			fmt.Println(kw)
		}
		return nil
	}),
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <keyword>",
	Short: "Add a keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE: withStore(func(ctx context.Context, store repo.KeywordStore, args []string) error {
		keyword := strings.Join(args, " ")
		var err error
		if keywordUser != "" {
			err = store.AddPersonal(ctx, keywordUser, keyword)
		} else {
			err = store.AddGlobal(ctx, keyword)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Added %q\n", keyword)
		return nil
	}),
}

var keywordsRemoveCmd = &cobra.Command{
	Use:     "remove <keyword>",
	Aliases: []string{"rm"},
	Short:   "Remove a keyword",
	Args:    cobra.MinimumNArgs(1),
	RunE: withStore(func(ctx context.Context, store repo.KeywordStore, args []string) error {
		keyword := strings.Join(args, " ")
		var err error
		if keywordUser != "" {
			err = store.RemovePersonal(ctx, keywordUser, keyword)
		} else {
			err = store.RemoveGlobal(ctx, keyword)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Removed %q\n", keyword)
		return nil
	}),
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <group-id> <user-id>",
	Short: "Alert a user about keywords seen in a group",
	Args:  cobra.ExactArgs(2),
	RunE: withStore(func(ctx context.Context, store repo.KeywordStore, args []string) error {
		if err := store.Subscribe(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Subscribed %s to %s\n", args[1], args[0])
		return nil
	}),
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <group-id> <user-id>",
	Short: "Stop alerting a user about a group",
	Args:  cobra.ExactArgs(2),
	RunE: withStore(func(ctx context.Context, store repo.KeywordStore, args []string) error {
		if err := store.Unsubscribe(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Unsubscribed %s from %s\n", args[1], args[0])
		return nil
	}),
}

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "List group subscriptions",
	Args:  cobra.NoArgs,
	RunE: withStore(func(ctx context.Context, store repo.KeywordStore, args []string) error {
		subs, err := store.Subscriptions(ctx)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Println("No subscriptions.")
			return nil
		}
		groups := make([]string, 0, len(subs))
		for g := range subs {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		for _, g := range groups {
			fmt.Printf("%s: %s\n", g, strings.Join(subs[g], ", "))
		}
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{keywordsListCmd, keywordsAddCmd, keywordsRemoveCmd} {
		c.Flags().StringVarP(&keywordUser, "user", "u", "", "personal keywords of this user")
	}
	keywordsCmd.AddCommand(keywordsListCmd, keywordsAddCmd, keywordsRemoveCmd,
		subscribeCmd, unsubscribeCmd, subscriptionsCmd)
}

// withStore opens the keyword store around a command
func withStore(fn func(ctx context.Context, store repo.KeywordStore, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck
		return fn(cmd.Context(), store, args)
	}
}

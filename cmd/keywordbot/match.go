package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/conf"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/data"
)

var (
	matchGroup    string
	matchKeywords []string
)

var matchCmd = &cobra.Command{
	Use:   "match <text>",
	Short: "Show which keywords a message would trigger",
	Long: `Run the matcher on a message without sending any alert.

With --keyword the given patterns are matched instead of the stored ones.`,
	Example: `  keywordbot match "urgnt: the server is down"
  keywordbot match --group oc_123 "asap please"
  keywordbot match -k "birthday party" "bday-party tonight"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engineCfg, _, err := conf.LoadEngineConfig(cfg.EngineConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load engine config: %w", err)
		}
		text := strings.Join(args, " ")

		var matches []domain.Match
		if len(matchKeywords) > 0 {
			matches = engineCfg.NewEngine().Match(text, domain.GlobalKeywords(matchKeywords))
		} else {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			ucs := biz.NewUsecases(store, data.NewReminderStore(), biz.Options{
				Engine:           engineCfg.NewEngine(),
				FallbackKeywords: engineCfg.FallbackKeywords,
			}, cliLogger(cfg))
			matches = ucs.Detect.DetectKeywords(cmd.Context(), text, matchGroup)
		}

		if len(matches) == 0 {
			fmt.Println("No keywords matched.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEYWORD\tTYPE\tTOKEN\tSCOPE\tUSER")
		for _, m := range matches {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Keyword, m.MatchType, m.MatchedToken, m.Scope, m.UserID)
		}
		return w.Flush()
	},
}

func init() {
	matchCmd.Flags().StringVarP(&matchGroup, "group", "g", "", "group id, enables personal keywords of its subscribers")
	matchCmd.Flags().StringArrayVarP(&matchKeywords, "keyword", "k", nil, "match these patterns instead of the stored keywords")
}

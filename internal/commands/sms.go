package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/categories"
	"github.com/moneymngr/moneymngr/internal/id"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/parser"
	"github.com/moneymngr/moneymngr/internal/store"
)

func newSMSCommand(opts *rootOptions) *cobra.Command {
	var account, category, file string
	var save, autoSubmit, suggest bool

	cmd := &cobra.Command{
		Use:   `sms "<message>"`,
		Short: "Parse a bank SMS and optionally record it",
		Long: "Parse a bank or wallet SMS. --save records it as CONFIRMED. --auto-submit\n" +
			"records it as PENDING after parser.auto_submit_delay when the parse is\n" +
			"confident enough; interrupt to cancel.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				return opts.run(cmd, func(ctx context.Context, a *app) error {
					return parseSMSFile(a, file)
				})
			}
			if len(args) == 0 {
				return errors.New("give a message or --file")
			}
			text := strings.Join(args, " ")
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				sms := parser.ParseSMS(text)
				if !sms.Amount.IsPositive() {
					return errors.New("no amount found in message")
				}

				catType := model.CategoryTypeExpense
				if sms.Type == model.TransactionTypeIncome {
					catType = model.CategoryTypeIncome
				}
				accts, err := a.accounts.All(ctx)
				if err != nil {
					return err
				}
				cats, err := a.categories.All(ctx)
				if err != nil {
					return err
				}
				cats = categories.ByType(cats, catType)

				if suggest {
					suggestSMS(ctx, a, &sms, accts, cats)
				}
				fmt.Fprintln(a.out, parser.FormatSMS(sms, a.cfg.Currency.Symbol))

				th := a.magic.Thresholds
				accountID, categoryID := th.Resolve(sms, parser.AccountCandidates(accts), parser.CategoryCandidates(cats))
				if account != "" {
					acct, err := a.accounts.Resolve(ctx, account)
					if err != nil {
						return err
					}
					accountID = acct.ID
				}
				if category != "" {
					c, err := a.categories.Resolve(ctx, category)
					if err != nil {
						return err
					}
					categoryID = c.ID
				}

				switch {
				case save:
					return saveSMS(ctx, a, sms, accountID, categoryID, false)
				case autoSubmit && th.ShouldAutoSubmit(sms):
					return autoSubmitSMS(ctx, a, sms, accountID, categoryID)
				case autoSubmit:
					fmt.Fprintf(a.out, "Confidence %d%% is below %d%%, not submitting\n", sms.Confidence, th.AutoSubmit)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account to record against")
	cmd.Flags().StringVar(&category, "category", "", "category to record under")
	cmd.Flags().BoolVar(&save, "save", false, "record as CONFIRMED now")
	cmd.Flags().BoolVar(&autoSubmit, "auto-submit", false, "record as PENDING after a countdown when confident")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "ask the LLM for a category and account")
	cmd.Flags().StringVar(&file, "file", "", "parse every line of a file, nothing is saved")
	return cmd
}

// parseSMSFile prints every message in path that carries an amount,
// one message per line.
func parseSMSFile(a *app, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading messages: %w", err)
	}
	parsed := parser.ParseSMSBatch(strings.Split(string(data), "\n"))
	for _, sms := range parsed {
		fmt.Fprintln(a.out, parser.FormatSMS(sms, a.cfg.Currency.Symbol))
		fmt.Fprintln(a.out)
	}
	fmt.Fprintf(a.out, "%d transaction message(s) found\n", len(parsed))
	return nil
}

func suggestSMS(ctx context.Context, a *app, sms *parser.SMS, accts []model.Account, cats []model.Category) {
	sug, err := a.suggester(ctx)
	if err != nil || sug == nil {
		a.log.Warn().Err(err).Msg("suggestions unavailable")
		return
	}
	recent, err := a.journal.List(ctx, store.TransactionFilter{Type: sms.Type, Limit: 50})
	if err != nil {
		a.log.Warn().Err(err).Msg("loading recent transactions")
	}
	s, err := sug.Suggest(ctx, parser.SuggestRequest{
		SMS:        sms.Raw,
		Categories: cats,
		Accounts:   accts,
		Recent:     parser.RecentLines(recent, cats),
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("suggestion failed")
		return
	}
	if s.Category != "" {
		sms.SuggestedCategory = s.Category
	}
	if s.AccountName != "" {
		sms.SuggestedAccount = s.AccountName
	}
}

func saveSMS(ctx context.Context, a *app, sms parser.SMS, accountID, categoryID string, pending bool) error {
	t, err := a.journal.CreateFromSMS(ctx, sms, accountID, categoryID, pending)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s as %s\n", id.Short(t.ID), t.Status)
	return nil
}

// autoSubmitSMS waits out the configured delay and then saves sms as
// PENDING. Cancelling ctx during the wait saves nothing.
func autoSubmitSMS(ctx context.Context, a *app, sms parser.SMS, accountID, categoryID string) error {
	delay := a.cfg.Parser.AutoSubmitDelay
	fmt.Fprintf(a.out, "Saving as PENDING in %s, interrupt to cancel\n", delay)

	var saveErr error
	cd := parser.StartCountdown(delay, func() {
		saveErr = saveSMS(ctx, a, sms, accountID, categoryID, true)
	})
	select {
	case <-cd.Done():
	case <-ctx.Done():
		if cd.Cancel() {
			fmt.Fprintln(a.out, "Cancelled")
			return nil
		}
		<-cd.Done()
	}
	return saveErr
}

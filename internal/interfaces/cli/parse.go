package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

var parseLocale string

// NewParseCmd sends text to a running server.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <text>...",
		Short: "Parse text with a running MultiNLU server",
		Example: `  multinlu parse --locale de_DE "Ich hätte gern einen Kaffee"
  multinlu parse -l en -o json "two espressos please"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Client()
			if err != nil {
				return err
			}
			ctx, cancel := clientContext(cmd, cliCtx)
			defer cancel()

			res, err := c.Parse(ctx, parseLocale, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return PrintResult(cmd, parseOutput(res))
		},
	}
	cmd.Flags().StringVarP(&parseLocale, "locale", "l", "", "locale of the text, e.g. de or de_DE (required)")
	_ = cmd.MarkFlagRequired("locale")
	return cmd
}

// parseOutput renders a parse result: the intent line followed by an
// entity table. JSON output is the raw result.
type parseOutput nlu.ParseResult

func (p parseOutput) TableHeaders() []string {
	return []string{"ENTITY", "VALUE", "START", "END", "CONFIDENCE"}
}

func (p parseOutput) TableRows() [][]string {
	var rows [][]string
	for _, e := range nlu.ParseResult(p).Entities() {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		rows = append(rows, []string{
			fmt.Sprint(m["entity"]),
			fmt.Sprint(m["value"]),
			formatNumber(m["start"]),
			formatNumber(m["end"]),
			formatNumber(m["confidence"]),
		})
	}
	return rows
}

func (p parseOutput) String() string {
	intent := nlu.ParseResult(p).Intent()
	if intent == "" {
		intent = "-"
	}
	return "intent: " + intent + "\n" + FormatTable(p.TableHeaders(), p.TableRows())
}

func formatNumber(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return "-"
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%.3f", n)
	default:
		return fmt.Sprint(n)
	}
}

// NewLocalesCmd lists the locale states of a running server.
func NewLocalesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locales",
		Short: "Show the load state of every locale on a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Client()
			if err != nil {
				return err
			}
			ctx, cancel := clientContext(cmd, cliCtx)
			defer cancel()

			statuses, err := c.Locales(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, localeTable(statuses))
		},
	}
}

type localeTable []nlu.LocaleStatus

func (l localeTable) TableHeaders() []string {
	return []string{"LOCALE", "STATE", "LOAD TIME", "ERROR"}
}

func (l localeTable) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{s.Locale, string(s.State), s.LoadDuration, s.Error})
	}
	return rows
}

//Personal.AI order the ending

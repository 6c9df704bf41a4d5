package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/turtacn/MultiNLU/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

var (
	eventsBrokers       []string
	eventsTopic         string
	eventsGroup         string
	eventsFromBeginning bool
	eventsLimit         int
)

// NewEventsCmd groups the parse event tools.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the parse events a server publishes",
	}
	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print parse events as they are published",
		Long: "Join the events topic with a private consumer group and print one line per\n" +
			"parse event until interrupted or --limit events have been printed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			brokers, topic := eventsBrokers, eventsTopic
			if len(brokers) == 0 || topic == "" {
				cfg, err := cliCtx.LoadConfig()
				if err != nil {
					return err
				}
				if len(brokers) == 0 {
					brokers = cfg.Events.Brokers
				}
				if topic == "" {
					topic = cfg.Events.Topic
				}
			}
			if len(brokers) == 0 {
				return errors.InvalidParam("no Kafka brokers: set --brokers or events.brokers")
			}

			group := eventsGroup
			if group == "" {
				group = "multinlu-tail-" + uuid.NewString()[:8]
			}
			offset := "latest"
			if eventsFromBeginning {
				offset = "earliest"
			}

			consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:         brokers,
				GroupID:         group,
				Topics:          []string{topic},
				AutoOffsetReset: offset,
			}, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			consumer.Subscribe(topic, newEventPrinter(cmd.OutOrStdout(), cliCtx.Options.OutputFormat, eventsLimit, cancel, cliCtx.Logger))
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			cliCtx.Logger.Info("tailing parse events",
				logging.String("topic", topic), logging.String("group", group))
			<-ctx.Done()
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&eventsBrokers, "brokers", nil, "Kafka brokers (default: events.brokers)")
	f.StringVar(&eventsTopic, "topic", "", "events topic (default: events.topic)")
	f.StringVar(&eventsGroup, "group", "", "consumer group (default: a fresh private group)")
	f.BoolVar(&eventsFromBeginning, "from-beginning", false, "start from the oldest retained event")
	f.IntVar(&eventsLimit, "limit", 0, "stop after this many events; 0 means no limit")
	return cmd
}

// newEventPrinter returns a handler that writes each event to w and calls
// done once limit events have been written. Undecodable messages are
// logged and skipped.
func newEventPrinter(w io.Writer, format string, limit int, done func(), logger logging.Logger) kafka.MessageHandler {
	var printed atomic.Int64
	return func(ctx context.Context, msg *kafka.Message) error {
		ev, err := kafka.DecodeParseEvent(msg)
		if err != nil {
			logger.Warn("skipping undecodable event", logging.Int64("offset", msg.Offset), logging.Err(err))
			return nil
		}
		if strings.EqualFold(format, OutputJSON) {
			line, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(line))
		} else {
			fmt.Fprintln(w, formatEvent(ev))
		}
		if n := printed.Add(1); limit > 0 && n >= int64(limit) {
			done()
		}
		return nil
	}
}

func formatEvent(ev nlu.ParseEvent) string {
	intent := ev.Intent
	if intent == "" {
		intent = "-"
	}
	locale := ev.Locale
	if ev.RequestedLocale != "" && ev.RequestedLocale != ev.Locale {
		locale += " (" + ev.RequestedLocale + ")"
	}
	cached := ""
	if ev.Cached {
		cached = " cached"
	}
	return fmt.Sprintf("%s  %-10s intent=%s entities=%d taxonomy=%d %dms%s",
		ev.OccurredAt.Format("2006-01-02T15:04:05.000Z07:00"), locale, intent,
		ev.EntityCount, ev.TaxonomyMatches, ev.DurationMS, cached)
}

//Personal.AI order the ending

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/ingest"

	"github.com/spf13/cobra"
)

type publishOptions struct {
	Kind  string
	Data  string
	Units []int64
	User  string

	URL   string
	Token string

	Kafka string
	Topic string
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &publishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one domain event to connected clients",
		Long: `Validate an event locally, then hand it to the gateway either through
POST /internal/events (--url, --token) or the Kafka topic it consumes (--kafka).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := time.ParseDuration(rootOpts.Timeout)
			if err != nil {
				return fmt.Errorf("invalid --timeout: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runPublish(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "event kind, e.g. document_update")
	cmd.Flags().StringVar(&opts.Data, "data", "{}", "event payload as a JSON object")
	cmd.Flags().Int64SliceVar(&opts.Units, "units", nil, "restrict delivery to these unit ids")
	cmd.Flags().StringVar(&opts.User, "user", "", "deliver only to this user's connections")
	cmd.Flags().StringVar(&opts.URL, "url", "", "gateway base URL, e.g. http://localhost:8080")
	cmd.Flags().StringVar(&opts.Token, "token", "", "PUBLISH_TOKEN of the gateway")
	cmd.Flags().StringVar(&opts.Kafka, "kafka", "", "comma separated Kafka brokers")
	cmd.Flags().StringVar(&opts.Topic, "topic", "case-events", "Kafka topic")
	_ = cmd.MarkFlagRequired("kind")
	cmd.MarkFlagsMutuallyExclusive("url", "kafka")

	return cmd
}

// buildMessage merges the targeting flags into the payload and validates the
// result the same way the gateway will.
func buildMessage(opts *publishOptions) ([]byte, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(opts.Data), &data); err != nil {
		return nil, fmt.Errorf("--data must be a JSON object: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	if len(opts.Units) > 0 {
		data["unitIds"] = opts.Units
	}
	if opts.User != "" {
		data["userId"] = opts.User
	}

	msg, err := json.Marshal(map[string]any{"type": opts.Kind, "data": data})
	if err != nil {
		return nil, err
	}
	if _, err := event.DecodeMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func runPublish(ctx context.Context, opts *publishOptions, out io.Writer) error {
	msg, err := buildMessage(opts)
	if err != nil {
		return err
	}

	switch {
	case opts.Kafka != "":
		producer := ingest.NewKafkaProducer(splitBrokers(opts.Kafka), opts.Topic)
		defer producer.Close()
		if err := producer.Emit(ctx, msg); err != nil {
			return fmt.Errorf("kafka publish: %w", err)
		}
		fmt.Fprintf(out, "queued %s on %s\n", opts.Kind, opts.Topic)
		return nil

	case opts.URL != "":
		body, err := postEvent(ctx, opts.URL, opts.Token, msg)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.TrimSpace(string(body)))
		return nil

	default:
		return errors.New("one of --url or --kafka is required")
	}
}

func postEvent(ctx context.Context, baseURL, token string, msg []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/internal/events", bytes.NewReader(msg))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("gateway answered %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

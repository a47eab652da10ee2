// Package ses implements a Transport that sends raw messages via AWS SES v2.
//
// SES has no session of its own: greeting, STARTTLS and login are no-ops,
// and the AWS credentials of the transport are used instead of the
// credentials asked for at send time.
package ses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/bulk-mailer/internal/registry"
	"github.com/shineum/bulk-mailer/internal/transport"
)

// Config holds the AWS settings. Empty keys fall back to the default
// credential chain.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SendEmailAPI is the subset of the SES v2 client used by the transport.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Transport sends through the SES v2 SendEmail API.
type Transport struct {
	client SendEmailAPI
}

// New creates a Transport from AWS configuration.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Transport{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewWithClient creates a Transport with a custom client, used for testing.
func NewWithClient(client SendEmailAPI) *Transport {
	return &Transport{client: client}
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "ses"
}

// Dial returns a session. The endpoint is only logged; SES is reached
// through the configured region.
func (t *Transport) Dial(_ context.Context, ep registry.Endpoint) (transport.Session, error) {
	slog.Debug("using SES instead of profile endpoint", "endpoint", ep.Addr())
	return &session{client: t.client}, nil
}

type session struct {
	client SendEmailAPI
}

func (s *session) Hello(context.Context) error    { return nil }
func (s *session) StartTLS(context.Context) error { return nil }

func (s *session) Auth(context.Context, string, string) error {
	slog.Debug("SES uses AWS credentials, ignoring login")
	return nil
}

func (s *session) Close() error { return nil }

// Send submits data as a raw message. A rejected message refuses every
// address, the way an SMTP server refusing all recipients would.
func (s *session) Send(ctx context.Context, from string, to []string, data []byte) (map[string]transport.Reply, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: to},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: data},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return classify(err, to)
	}

	slog.Debug("SES accepted message", "message_id", aws.ToString(out.MessageId))
	return map[string]transport.Reply{}, nil
}

func classify(err error, to []string) (map[string]transport.Reply, error) {
	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		reply := transport.Reply{Code: 554, Message: rejected.ErrorMessage()}
		refused := make(map[string]transport.Reply, len(to))
		for _, addr := range to {
			refused[addr] = reply
		}
		return refused, nil
	}

	var (
		notVerified *types.MailFromDomainNotVerifiedException
		suspended   *types.AccountSuspendedException
		paused      *types.SendingPausedException
	)
	switch {
	case errors.As(err, &notVerified):
		return nil, &transport.Error{Stage: transport.StageMail, Code: 553, Message: notVerified.ErrorMessage(), Err: err}
	case errors.As(err, &suspended):
		return nil, &transport.Error{Stage: transport.StageMail, Code: 554, Message: suspended.ErrorMessage(), Err: err}
	case errors.As(err, &paused):
		return nil, &transport.Error{Stage: transport.StageMail, Code: 554, Message: paused.ErrorMessage(), Err: err}
	}

	return nil, &transport.Error{Stage: transport.StageData, Err: fmt.Errorf("SES API request failed: %w", err)}
}

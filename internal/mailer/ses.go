// Package mailer sends transactional email through Amazon SES.
package mailer

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/go-faster/errors"
)

// Config holds SES credentials and the sender identity.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Sender          string
}

// SES sends HTML email through Amazon SES. It satisfies notify.Mailer.
type SES struct {
	client *ses.Client
	sender string
}

// New creates an SES mailer with static credentials.
func New(ctx context.Context, cfg Config) (*SES, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	return &SES{
		client: ses.NewFromConfig(awsCfg),
		sender: cfg.Sender,
	}, nil
}

// Send delivers a single HTML email. Failures are returned to the caller;
// the notifier treats them as best-effort.
func (m *SES) Send(ctx context.Context, to, subject, htmlBody string) error {
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(htmlBody),
				},
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "send email to %s", to)
	}
	return nil
}

// Package mainconfig holds wiring shared by the binaries under cmd/.
package mainconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/hairloss-doctor/internal/config"
	"github.com/wolfman30/hairloss-doctor/internal/notify"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// LoadAWSConfig builds the SDK config from the region and, when both are set,
// static credentials. Otherwise the default credential chain applies.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, loaders...)
}

// NewSESClient returns an SES v2 client, pointed at endpoint when one is given
// (LocalStack in development).
func NewSESClient(awsCfg aws.Config, endpoint string) *sesv2.Client {
	return sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewEmailSender picks the lead notification transport from EMAIL_PROVIDER.
func NewEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "", "none", "stub":
		return notify.NewStubEmailSender(logger), nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("mainconfig: EMAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY")
		}
		return sender, nil
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: load aws config: %w", err)
		}
		return notify.NewSESSender(NewSESClient(awsCfg, cfg.AWSEndpointOverride), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	default:
		return nil, fmt.Errorf("mainconfig: unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

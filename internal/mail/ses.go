package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/tus-lockers/locker-backend/internal/config"
)

const charset = "UTF-8"

func init() {
	RegisterBackend(BackendSES, func(cfg *config.Config) (Dispatcher, error) {
		if cfg.SenderEmailAddress == "" {
			return nil, config.ErrMissingSESSender
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSES(sesv2.NewFromConfig(awsCfg), cfg.SenderEmailAddress), nil
	})
}

// SESAPI is the part of the SES v2 client the dispatcher uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends through the Amazon SES v2 API with SigV4-signed requests.
type SES struct {
	api  SESAPI
	from string
}

func NewSES(api SESAPI, from string) *SES {
	return &SES{api: api, from: from}
}

func (s *SES) Send(ctx context.Context, to, body, subject string) error {
	_, err := s.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String(charset)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String(charset)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
)

// API is the subset of the SNS client the publisher calls.
type API interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher hands outgoing email to an SNS topic; a downstream subscriber
// owns the actual delivery. Recipient and subject travel as message
// attributes so subscribers can filter on them.
type Publisher struct {
	client   API
	topicARN string
}

func NewPublisher(ctx context.Context, cfg *config.Config) (*Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	var opts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return NewPublisherWithClient(sns.NewFromConfig(awsCfg, opts...), cfg.SNSTopicARN), nil
}

func NewPublisherWithClient(client API, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

func (p *Publisher) Send(ctx context.Context, e domain.Email) error {
	body := e.Text
	if body == "" {
		body = e.HTML
	}
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(e.Subject),
		Message:  aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"email":   stringAttr(e.To),
			"subject": stringAttr(e.Subject),
		},
	})
	if err != nil {
		return fmt.Errorf("publish email to %s: %w: %w", e.To, domain.ErrDispatch, err)
	}
	return nil
}

func stringAttr(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}

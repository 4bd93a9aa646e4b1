package dynamo

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/go-auth-otp/internal/domain"
)

const (
	emailIndex           = "email-index"
	conditionalCheckCode = "ConditionalCheckFailed"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// eqQuery builds the key condition pieces for "attr = value" on an index.
func eqQuery(attr, value string) (*string, map[string]string, map[string]types.AttributeValue) {
	return aws.String("#a = :v"),
		map[string]string{"#a": attr},
		map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}}
}

// conditionFailed reports whether a transaction was cancelled because one
// of its condition expressions did not hold.
func conditionFailed(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, r := range tce.CancellationReasons {
		if aws.ToString(r.Code) == conditionalCheckCode {
			return true
		}
	}
	return false
}

// storageErr wraps an SDK failure in domain.ErrStorage, logging the AWS
// error code when one is available.
func storageErr(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		slog.Error("dynamodb call failed", "op", op, "code", apiErr.ErrorCode(), "err", apiErr.ErrorMessage())
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockAPI) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

var testTables = config.DynamoTables{Users: "users", Admins: "admins", IdentityEmails: "identity_emails"}

func TestCreateUser_WritesLockAndRecordInOneTransaction(t *testing.T) {
	api := &mockAPI{}
	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 2 {
			return false
		}
		lock, record := in.TransactItems[0].Put, in.TransactItems[1].Put
		var l domain.IdentityEmail
		if err := attributevalue.UnmarshalMap(lock.Item, &l); err != nil {
			return false
		}
		return aws.ToString(lock.TableName) == "identity_emails" &&
			l.Email == "a@x.com" && l.AccountType == domain.AccountUser && l.IdentityID == "u1" &&
			aws.ToString(record.TableName) == "users" &&
			aws.ToString(lock.ConditionExpression) == "attribute_not_exists(#e)"
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	repo := NewIdentityRepo(api, testTables)
	err := repo.CreateUser(context.Background(), &domain.User{
		UserID: "u1", Email: "a@x.com", Name: "Ann", PasswordHash: "h", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestCreateAdmin_TakenEmailIsDuplicate(t *testing.T) {
	api := &mockAPI{}
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
			{Code: aws.String("None")},
		},
	})

	err := NewIdentityRepo(api, testTables).CreateAdmin(context.Background(), &domain.Admin{AdminID: "a1", Email: "a@x.com"})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
}

func TestCreateUser_OtherFailureIsStorage(t *testing.T) {
	api := &mockAPI{}
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, errors.New("network down"))

	err := NewIdentityRepo(api, testTables).CreateUser(context.Background(), &domain.User{UserID: "u1", Email: "a@x.com"})
	assert.True(t, errors.Is(err, domain.ErrStorage))
	assert.False(t, errors.Is(err, domain.ErrDuplicate))
}

func TestGetUser(t *testing.T) {
	item, err := attributevalue.MarshalMap(domain.User{UserID: "u1", Email: "a@x.com", Name: "Ann", PasswordHash: "h"})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		k, ok := in.Key["user_id"].(*types.AttributeValueMemberS)
		return ok && k.Value == "u1" && aws.ToString(in.TableName) == "users"
	})).Return(&dynamodb.GetItemOutput{Item: item}, nil)

	u, err := NewIdentityRepo(api, testTables).GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "h", u.PasswordHash)
}

func TestGetAdmin_Missing(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewIdentityRepo(api, testTables).GetAdmin(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGetUserByEmail_QueriesEmailIndex(t *testing.T) {
	item, err := attributevalue.MarshalMap(domain.User{UserID: "u1", Email: "a@x.com"})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == "email-index" && in.ExpressionAttributeNames["#a"] == "email"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	u, err := NewIdentityRepo(api, testTables).GetUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}

func TestGetAdminByEmail_NoItems(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := NewIdentityRepo(api, testTables).GetAdminByEmail(context.Background(), "a@x.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGetAdminByEmail_QueryFailure(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := NewIdentityRepo(api, testTables).GetAdminByEmail(context.Background(), "a@x.com")
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

type mockCreator struct{ mock.Mock }

func (m *mockCreator) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.CreateTableOutput)
	return out, args.Error(1)
}

func TestBootstrap_CreatesThreeTablesAndToleratesExisting(t *testing.T) {
	c := &mockCreator{}
	c.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return aws.ToString(in.TableName) == "users"
	})).Return(nil, &types.ResourceInUseException{})
	c.On("CreateTable", mock.Anything, mock.Anything).Return(&dynamodb.CreateTableOutput{}, nil)

	require.NoError(t, Bootstrap(context.Background(), c, testTables))
	c.AssertNumberOfCalls(t, "CreateTable", 3)
}

func TestBootstrap_StopsOnCreateFailure(t *testing.T) {
	c := &mockCreator{}
	c.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return aws.ToString(in.TableName) == "users"
	})).Return(&dynamodb.CreateTableOutput{}, nil)
	c.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return aws.ToString(in.TableName) == "admins"
	})).Return(nil, errors.New("AccessDeniedException: not authorized"))

	err := Bootstrap(context.Background(), c, testTables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table admins")
	c.AssertNumberOfCalls(t, "CreateTable", 2)
}

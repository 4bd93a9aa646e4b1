package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
)

// IdentityRepo stores users and admins in separate tables. A third table
// holds one lock item per email so that an address can belong to at most one
// identity of either kind; the lock and the record are written in a single
// transaction.
type IdentityRepo struct {
	client API
	tables config.DynamoTables
}

func NewIdentityRepo(client API, tables config.DynamoTables) *IdentityRepo {
	return &IdentityRepo{client: client, tables: tables}
}

func (r *IdentityRepo) CreateUser(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w: %w", domain.ErrStorage, err)
	}
	lock := domain.IdentityEmail{Email: u.Email, AccountType: domain.AccountUser, IdentityID: u.UserID}
	return r.createWithLock(ctx, "create user", r.tables.Users, "user_id", item, lock)
}

func (r *IdentityRepo) CreateAdmin(ctx context.Context, a *domain.Admin) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal admin: %w: %w", domain.ErrStorage, err)
	}
	lock := domain.IdentityEmail{Email: a.Email, AccountType: domain.AccountAdmin, IdentityID: a.AdminID}
	return r.createWithLock(ctx, "create admin", r.tables.Admins, "admin_id", item, lock)
}

func (r *IdentityRepo) createWithLock(ctx context.Context, op, table, idAttr string, item map[string]types.AttributeValue, lock domain.IdentityEmail) error {
	lockItem, err := attributevalue.MarshalMap(lock)
	if err != nil {
		return fmt.Errorf("marshal email lock: %w: %w", domain.ErrStorage, err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tables.IdentityEmails),
				Item:                     lockItem,
				ConditionExpression:      aws.String("attribute_not_exists(#e)"),
				ExpressionAttributeNames: map[string]string{"#e": "email"},
			}},
			{Put: &types.Put{
				TableName:                aws.String(table),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": idAttr},
			}},
		},
	})
	if err != nil {
		if conditionFailed(err) {
			return fmt.Errorf("%s: email %s: %w", op, lock.Email, domain.ErrDuplicate)
		}
		return storageErr(op, err)
	}
	return nil
}

func (r *IdentityRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	if err := r.getItem(ctx, "get user", r.tables.Users, strKey("user_id", userID), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *IdentityRepo) GetAdmin(ctx context.Context, adminID string) (*domain.Admin, error) {
	var a domain.Admin
	if err := r.getItem(ctx, "get admin", r.tables.Admins, strKey("admin_id", adminID), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *IdentityRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.queryEmail(ctx, "get user by email", r.tables.Users, email, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *IdentityRepo) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var a domain.Admin
	if err := r.queryEmail(ctx, "get admin by email", r.tables.Admins, email, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *IdentityRepo) getItem(ctx context.Context, op, table string, key map[string]types.AttributeValue, out any) error {
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return storageErr(op, err)
	}
	if res.Item == nil {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("%s: unmarshal: %w: %w", op, domain.ErrStorage, err)
	}
	return nil
}

func (r *IdentityRepo) queryEmail(ctx context.Context, op, table, email string, out any) error {
	cond, names, values := eqQuery("email", email)
	res, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(emailIndex),
		KeyConditionExpression:    cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return storageErr(op, err)
	}
	if len(res.Items) == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(res.Items[0], out); err != nil {
		return fmt.Errorf("%s: unmarshal: %w: %w", op, domain.ErrStorage, err)
	}
	return nil
}

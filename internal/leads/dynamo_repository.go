package leads

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

const (
	contactIndexName = "contact-created-index"
	sourceIndexName  = "source-suffix-index"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// createdKeyLayout keeps a fixed-width fraction so created_key strings sort
// in time order.
const createdKeyLayout = "2006-01-02T15:04:05.000000000Z"

// dynamoItem is the persisted document. created_key is "<fixed-width UTC>#<id>"
// so the contact index sorts by creation instant with the id as tie-break.
type dynamoItem struct {
	ID                string `dynamodbav:"id"`
	Contact           string `dynamodbav:"contact"`
	ConsultationType  string `dynamodbav:"consultation_type"`
	Residence         string `dynamodbav:"residence,omitempty"`
	AcquisitionSource string `dynamodbav:"acquisition_source"`
	CustomerName      string `dynamodbav:"customer_name"`
	NameSuffix        int    `dynamodbav:"name_suffix"`
	TestAnswers       string `dynamodbav:"test_answers,omitempty"`
	DebtInfo          string `dynamodbav:"debt_info,omitempty"`
	Status            string `dynamodbav:"status"`
	RemoteID          string `dynamodbav:"remote_id,omitempty"`
	IsDuplicate       bool   `dynamodbav:"is_duplicate"`
	DuplicateCount    int    `dynamodbav:"duplicate_count"`
	Attempts          int    `dynamodbav:"attempts"`
	ErrorKind         string `dynamodbav:"error_kind,omitempty"`
	ErrorDetail       string `dynamodbav:"error_detail,omitempty"`
	CreatedKey        string `dynamodbav:"created_key"`
	CreatedAt         string `dynamodbav:"created_at"`
	UpdatedAt         string `dynamodbav:"updated_at"`
}

// DynamoRepository stores records as DynamoDB documents.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
	now       func() time.Time
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository over the given table.
func NewDynamoRepository(client dynamoAPI, tableName string) *DynamoRepository {
	if client == nil {
		panic("leads: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("leads: table name cannot be empty")
	}
	return &DynamoRepository{client: client, tableName: tableName, now: time.Now}
}

// Create puts a new pending document; the id condition prevents overwrites.
func (r *DynamoRepository) Create(ctx context.Context, sub *Submission) (*Record, error) {
	if sub == nil || sub.Contact == "" {
		return nil, ErrMissingContact
	}
	now := r.now().UTC()
	rec := &Record{
		ID:         uuid.New().String(),
		Submission: *sub,
		Outcome:    Outcome{Status: StatusPending},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	item, err := attributevalue.MarshalMap(toDynamoItem(rec))
	if err != nil {
		return nil, fmt.Errorf("leads: marshal record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("leads: put record: %w", err)
	}
	return rec, nil
}

// Update sets the outcome attributes on an existing document.
func (r *DynamoRepository) Update(ctx context.Context, id string, outcome Outcome) error {
	if err := outcome.Validate(); err != nil {
		return err
	}
	if id == "" {
		return ErrRecordNotFound
	}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression: aws.String("SET #status = :status, remote_id = :remote, is_duplicate = :dup, " +
			"duplicate_count = :dupCount, attempts = :attempts, error_kind = :kind, error_detail = :detail, updated_at = :updated"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: string(outcome.Status)},
			":remote":   &types.AttributeValueMemberS{Value: outcome.RemoteID},
			":dup":      &types.AttributeValueMemberBOOL{Value: outcome.IsDuplicate},
			":dupCount": &types.AttributeValueMemberN{Value: strconv.Itoa(outcome.DuplicateCount)},
			":attempts": &types.AttributeValueMemberN{Value: strconv.Itoa(outcome.Attempts)},
			":kind":     &types.AttributeValueMemberS{Value: outcome.ErrorKind},
			":detail":   &types.AttributeValueMemberS{Value: outcome.ErrorDetail},
			":updated":  &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("leads: update record: %w", err)
	}
	return nil
}

// GetByID fetches one document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("leads: get record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrRecordNotFound
	}
	return fromAttributeMap(out.Item)
}

// FindLatestByContact reads the head of the contact index in descending order.
func (r *DynamoRepository) FindLatestByContact(ctx context.Context, contact string) (*Record, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(contactIndexName),
		KeyConditionExpression: aws.String("contact = :contact"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":contact": &types.AttributeValueMemberS{Value: contact},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("leads: query latest: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrRecordNotFound
	}
	return fromAttributeMap(out.Items[0])
}

// ListAll scans the whole table and sorts newest first.
func (r *DynamoRepository) ListAll(ctx context.Context) ([]*Record, error) {
	var (
		out      []*Record
		startKey map[string]types.AttributeValue
	)
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("leads: scan records: %w", err)
		}
		for _, item := range page.Items {
			rec, err := fromAttributeMap(item)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startKey = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].newer(out[j]) })
	return out, nil
}

// MaxNameSuffix reads the highest suffix from the source index.
func (r *DynamoRepository) MaxNameSuffix(ctx context.Context, source string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(sourceIndexName),
		KeyConditionExpression: aws.String("acquisition_source = :source"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":source": &types.AttributeValueMemberS{Value: source},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("leads: query max suffix: %w", err)
	}
	if len(out.Items) == 0 {
		return 0, nil
	}
	rec, err := fromAttributeMap(out.Items[0])
	if err != nil {
		return 0, err
	}
	return rec.NameSuffix, nil
}

func toDynamoItem(rec *Record) dynamoItem {
	createdAt := rec.CreatedAt.UTC()
	created := createdAt.Format(time.RFC3339Nano)
	return dynamoItem{
		ID:                rec.ID,
		Contact:           rec.Contact,
		ConsultationType:  string(rec.ConsultationType),
		Residence:         rec.Residence,
		AcquisitionSource: rec.AcquisitionSource,
		CustomerName:      rec.CustomerName,
		NameSuffix:        rec.NameSuffix,
		TestAnswers:       string(rec.TestAnswers),
		DebtInfo:          string(rec.DebtInfo),
		Status:            string(rec.Status),
		RemoteID:          rec.RemoteID,
		IsDuplicate:       rec.IsDuplicate,
		DuplicateCount:    rec.DuplicateCount,
		Attempts:          rec.Attempts,
		ErrorKind:         rec.ErrorKind,
		ErrorDetail:       rec.ErrorDetail,
		CreatedKey:        createdKey(createdAt, rec.ID),
		CreatedAt:         created,
		UpdatedAt:         rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func createdKey(created time.Time, id string) string {
	return created.UTC().Format(createdKeyLayout) + "#" + id
}

func fromAttributeMap(item map[string]types.AttributeValue) (*Record, error) {
	var it dynamoItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, fmt.Errorf("leads: unmarshal record: %w", err)
	}
	rec := &Record{
		ID: it.ID,
		Submission: Submission{
			Contact:           it.Contact,
			ConsultationType:  ConsultationType(it.ConsultationType),
			Residence:         it.Residence,
			AcquisitionSource: it.AcquisitionSource,
			CustomerName:      it.CustomerName,
			NameSuffix:        it.NameSuffix,
		},
		Outcome: Outcome{
			Status:         Status(it.Status),
			RemoteID:       it.RemoteID,
			IsDuplicate:    it.IsDuplicate,
			DuplicateCount: it.DuplicateCount,
			Attempts:       it.Attempts,
			ErrorKind:      it.ErrorKind,
			ErrorDetail:    it.ErrorDetail,
		},
	}
	if it.TestAnswers != "" {
		rec.TestAnswers = []byte(it.TestAnswers)
	}
	if it.DebtInfo != "" {
		rec.DebtInfo = []byte(it.DebtInfo)
	}
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, it.CreatedAt); err != nil {
		return nil, fmt.Errorf("leads: parse created_at: %w", err)
	}
	if it.UpdatedAt != "" {
		if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("leads: parse updated_at: %w", err)
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func isConditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}
